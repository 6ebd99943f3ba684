package harmony

import "github.com/aimeeyu8/Tastebuddy/models"

// SelectCompromise picks the candidate whose vector is most similar to the
// group vector. Ties keep the earliest candidate. It returns nil and 0 for no
// candidates.
func SelectCompromise(candidates []models.Restaurant, group Vector) (*models.Restaurant, float64) {
	if len(candidates) == 0 {
		return nil, 0.0
	}

	best := -1
	bestSim := -1.0
	for i := range candidates {
		sim := CosineSimilarity(VectorizeRestaurant(candidates[i]), group)
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}

	return &candidates[best], bestSim
}
