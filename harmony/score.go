package harmony

import (
	"math"
	"sort"

	"github.com/aimeeyu8/Tastebuddy/models"
)

// Weights combine the three alignment components into one harmony score.
type Weights struct {
	Cuisine float64
	Price   float64
	Allergy float64
}

var DefaultWeights = Weights{Cuisine: 0.3, Price: 0.4, Allergy: 0.3}

// neutralCuisine is the cuisine score of a user who named no cuisine.
const neutralCuisine = 0.5

// Score measures how aligned p is with everyone else in snap, in [0,1]. It
// does not modify snap; userID's own entry, if any, is ignored. Others are
// visited in id order so the result does not depend on map iteration.
func Score(userID string, p models.PreferenceRecord, snap Snapshot) float64 {
	return DefaultWeights.Score(userID, p, snap)
}

// Score is Score with custom weights.
func (w Weights) Score(userID string, p models.PreferenceRecord, snap Snapshot) float64 {
	ids := make([]string, 0, len(snap))
	for id := range snap {
		if id != userID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	others := make([]models.PreferenceRecord, len(ids))
	for i, id := range ids {
		others[i] = snap[id]
	}
	if len(others) == 0 {
		return 1.0
	}

	harmony := w.Cuisine*cuisineScore(p, others) +
		w.Price*priceScore(p, others) +
		w.Allergy*allergyScore(p, others)

	return clamp(harmony)
}

// cuisineScore is the best fraction of others sharing one of the user's
// cuisines.
func cuisineScore(p models.PreferenceRecord, others []models.PreferenceRecord) float64 {
	cuisines := p.NormalizedCuisines()
	if len(cuisines) == 0 {
		return neutralCuisine
	}

	otherSets := make([]map[string]struct{}, len(others))
	for i, o := range others {
		set := make(map[string]struct{})
		for _, c := range o.NormalizedCuisines() {
			set[c] = struct{}{}
		}
		otherSets[i] = set
	}

	best := 0
	for _, c := range cuisines {
		count := 0
		for _, set := range otherSets {
			if _, ok := set[c]; ok {
				count++
			}
		}
		if count > best {
			best = count
		}
	}

	return float64(best) / float64(len(others))
}

func priceScore(p models.PreferenceRecord, others []models.PreferenceRecord) float64 {
	user := normalizedPrice(p)

	var sum float64
	for _, o := range others {
		sum += normalizedPrice(o)
	}
	avg := sum / float64(len(others))

	return math.Max(0, 1-math.Abs(user-avg))
}

// allergyScore is 1 minus the mean risk over every (user allergen, other
// member cuisine) pair.
func allergyScore(p models.PreferenceRecord, others []models.PreferenceRecord) float64 {
	allergies := p.NormalizedAllergies()
	if len(allergies) == 0 {
		return 1.0
	}

	var total float64
	var pairs int
	for _, a := range allergies {
		for _, o := range others {
			for _, c := range o.NormalizedCuisines() {
				total += Risk(a, c)
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 1.0
	}

	return clamp(1 - total/float64(pairs))
}

func normalizedPrice(p models.PreferenceRecord) float64 {
	if mean, ok := models.MeanPriceLevel(p.PriceLevels); ok {
		return mean / models.MaxPriceLevel
	}
	return neutralPrice
}

// Label describes a score in words, never in numbers.
func Label(score float64) string {
	switch {
	case score >= 0.8:
		return "very aligned with the group"
	case score >= 0.6:
		return "mostly aligned with the group"
	case score >= 0.4:
		return "somewhat different from the group"
	default:
		return "quite different from the group"
	}
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
