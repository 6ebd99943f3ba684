package harmony

import (
	"math"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/models"
)

// Vector is [normalized_price, allergy_count, cuisine multi-hot...], always
// Dim long.
type Vector []float64

// neutralPrice stands in for an unstated or unparseable price.
const neutralPrice = 0.5

// Vectorize maps a user's preferences into the shared vector space. A
// vocabulary entry is set when a stated cuisine equals it or contains it
// ("thai food" sets "thai").
func Vectorize(p models.PreferenceRecord) Vector {
	v := make(Vector, Dim)

	v[priceDim] = neutralPrice
	if mean, ok := models.MeanPriceLevel(p.PriceLevels); ok {
		v[priceDim] = mean / models.MaxPriceLevel
	}

	v[allergyDim] = float64(len(p.NormalizedAllergies()))

	cuisines := p.NormalizedCuisines()
	for i, entry := range cuisineVocabulary {
		for _, c := range cuisines {
			if c == entry || strings.Contains(c, entry) {
				v[cuisineOff+i] = 1
				break
			}
		}
	}

	return v
}

// VectorizeRestaurant maps a restaurant into the same space as Vectorize.
// Its allergy dimension is always 0. A vocabulary entry is set when it
// occurs anywhere in the categories or the title.
func VectorizeRestaurant(r models.Restaurant) Vector {
	v := make(Vector, Dim)

	v[priceDim] = neutralPrice
	if mean, ok := models.MeanPriceLevel(models.ParsePriceLevels(r.Price)); ok {
		v[priceDim] = mean / models.MaxPriceLevel
	}

	text := strings.ToLower(r.Type() + " " + r.Title)
	for i, entry := range cuisineVocabulary {
		if strings.Contains(text, entry) {
			v[cuisineOff+i] = 1
		}
	}

	return v
}

// Mean averages vectors dimension-wise. It returns a zero vector when vs is
// empty.
func Mean(vs []Vector) Vector {
	mean := make(Vector, Dim)
	if len(vs) == 0 {
		return mean
	}
	for _, v := range vs {
		for i := 0; i < Dim && i < len(v); i++ {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float64(len(vs))
	}
	return mean
}

// CosineSimilarity returns dot(a,b) / (|a||b|), or 0 when either norm is zero
// or the lengths differ. Vectors built here are non-negative, so the result
// lies in [0,1] without remapping.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
