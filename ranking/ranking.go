package ranking

import (
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/filter"
	"github.com/aimeeyu8/Tastebuddy/models"
)

const (
	allergenWeight = 0.40
	priceWeight    = 0.20
	cuisineWeight  = 0.15
	ratingWeight   = 0.15
	reviewWeight   = 0.10

	unknownAllergenScore = 0.7
	unknownPriceScore    = 0.6
	priceMissScore       = 0.3
	cuisineMissScore     = 0.5

	// reviewSaturation is the review count that earns the full review score.
	reviewSaturation = 1000.0
)

// Ranked annotates a restaurant with its score without touching the record.
type Ranked struct {
	models.Restaurant
	Score float64 `json:"_score"`
}

// Rank scores restaurants against prefs and sorts them best first. Equal
// scores keep their input order. report may be nil.
func Rank(restaurants []models.Restaurant, prefs models.PreferenceRecord, report filter.AllergenReport) []Ranked {
	cuisines := prefs.NormalizedCuisines()
	levels := prefs.Levels()

	ranked := make([]Ranked, len(restaurants))
	for i, r := range restaurants {
		ranked[i] = Ranked{
			Restaurant: r,
			Score:      score(r, cuisines, levels, report),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}

// Restaurants strips the scores, keeping at most n entries (all when n <= 0).
func Restaurants(ranked []Ranked, n int) []models.Restaurant {
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]models.Restaurant, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].Restaurant
	}
	return out
}

func score(r models.Restaurant, cuisines []string, levels []int, report filter.AllergenReport) float64 {
	allergen := unknownAllergenScore
	if fraction, ok := report.Fraction(r); ok {
		allergen = clamp(1 - fraction)
	}

	return allergenWeight*allergen +
		priceWeight*priceScore(r.Price, levels) +
		cuisineWeight*cuisineScore(r, cuisines) +
		ratingWeight*clamp(r.Rating/5) +
		reviewWeight*reviewScore(r.ReviewCount)
}

func priceScore(raw string, levels []int) float64 {
	parsed := models.ParsePriceLevels(raw)
	if len(parsed) == 0 {
		return unknownPriceScore
	}
	for _, l := range parsed {
		if slices.Contains(levels, l) {
			return 1.0
		}
	}
	return priceMissScore
}

func cuisineScore(r models.Restaurant, cuisines []string) float64 {
	text := strings.ToLower(strings.Join(r.Categories, " ") + " " + r.Title)
	for _, c := range cuisines {
		if strings.Contains(text, c) {
			return 1.0
		}
	}
	return cuisineMissScore
}

func reviewScore(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(1, math.Log1p(float64(count))/math.Log1p(reviewSaturation))
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
