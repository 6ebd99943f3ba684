package harmony

import "strings"

// VocabularyVersion names the cuisine vocabulary and allergen risk table
// below. Bump it whenever either changes: vectors built under different
// versions are not comparable.
const VocabularyVersion = "tastebuddy-cuisines/v1"

// cuisineVocabulary fixes the order of the cuisine dimensions shared by user
// and restaurant vectors.
var cuisineVocabulary = [...]string{
	"american",
	"italian",
	"pizza",
	"mexican",
	"chinese",
	"cantonese",
	"szechuan",
	"dim sum",
	"taiwanese",
	"japanese",
	"sushi",
	"ramen",
	"korean",
	"thai",
	"vietnamese",
	"filipino",
	"malaysian",
	"indonesian",
	"indian",
	"pakistani",
	"middle eastern",
	"lebanese",
	"turkish",
	"mediterranean",
	"greek",
	"french",
	"spanish",
	"tapas",
	"german",
	"ethiopian",
	"moroccan",
	"caribbean",
	"cuban",
	"brazilian",
	"peruvian",
	"argentinian",
	"barbecue",
	"burgers",
	"seafood",
	"steakhouse",
	"noodles",
	"dumplings",
	"street food",
	"vegan",
	"vegetarian",
	"halal",
	"kosher",
	"dessert",
	"bakery",
	"cafe",
}

const (
	priceDim   = 0
	allergyDim = 1
	cuisineOff = 2

	// Dim is the length of every Vector built in this process.
	Dim = cuisineOff + len(cuisineVocabulary)
)

// CuisineVocabulary returns a copy of the ordered cuisine vocabulary.
func CuisineVocabulary() []string {
	out := make([]string, len(cuisineVocabulary))
	copy(out, cuisineVocabulary[:])
	return out
}

// DefaultRisk applies to allergen/cuisine pairs missing from the table.
const DefaultRisk = 0.1

// allergenRisk maps allergen -> cuisine -> how likely a dish of that cuisine
// carries the allergen.
var allergenRisk = map[string]map[string]float64{
	"peanut": {
		"thai": 0.9, "chinese": 0.7, "szechuan": 0.8, "indonesian": 0.8, "malaysian": 0.7,
		"vietnamese": 0.6, "indian": 0.6, "african": 0.6, "dessert": 0.4,
	},
	"tree nut": {
		"indian": 0.6, "middle eastern": 0.6, "lebanese": 0.6, "turkish": 0.6,
		"mediterranean": 0.5, "dessert": 0.6, "bakery": 0.6, "french": 0.4,
	},
	"shellfish": {
		"sushi": 0.9, "seafood": 0.95, "japanese": 0.7, "thai": 0.7, "chinese": 0.6,
		"cantonese": 0.7, "dim sum": 0.7, "vietnamese": 0.6, "spanish": 0.6, "tapas": 0.5,
		"caribbean": 0.5, "filipino": 0.6, "malaysian": 0.6,
	},
	"fish": {
		"sushi": 0.95, "seafood": 0.95, "japanese": 0.8, "thai": 0.6, "vietnamese": 0.7,
		"korean": 0.5, "filipino": 0.5, "peruvian": 0.6, "mediterranean": 0.4,
	},
	"dairy": {
		"pizza": 0.9, "italian": 0.8, "french": 0.7, "dessert": 0.8, "bakery": 0.7,
		"indian": 0.6, "greek": 0.5, "mexican": 0.5, "cafe": 0.5, "burgers": 0.5,
	},
	"gluten": {
		"pizza": 0.9, "bakery": 0.9, "ramen": 0.9, "italian": 0.8, "noodles": 0.8,
		"dumplings": 0.8, "dim sum": 0.7, "burgers": 0.7, "dessert": 0.7, "chinese": 0.6,
		"japanese": 0.5, "korean": 0.5, "german": 0.6,
	},
	"soy": {
		"chinese": 0.8, "japanese": 0.8, "korean": 0.8, "taiwanese": 0.7, "sushi": 0.7,
		"ramen": 0.7, "thai": 0.5, "vietnamese": 0.5, "vegan": 0.5,
	},
	"egg": {
		"bakery": 0.8, "dessert": 0.7, "french": 0.6, "ramen": 0.5, "chinese": 0.5,
		"korean": 0.4, "cafe": 0.4,
	},
	"sesame": {
		"middle eastern": 0.8, "lebanese": 0.8, "korean": 0.7, "turkish": 0.6, "japanese": 0.6,
		"chinese": 0.6, "greek": 0.5, "bakery": 0.4,
	},
}

var allergenAliases = map[string]string{
	"peanuts":      "peanut",
	"nuts":         "tree nut",
	"nut":          "tree nut",
	"tree nuts":    "tree nut",
	"shrimp":       "shellfish",
	"crab":         "shellfish",
	"lobster":      "shellfish",
	"seafood":      "shellfish",
	"milk":         "dairy",
	"lactose":      "dairy",
	"cheese":       "dairy",
	"wheat":        "gluten",
	"soybean":      "soy",
	"soybeans":     "soy",
	"eggs":         "egg",
	"sesame seeds": "sesame",
}

// Risk returns the risk weight in [0,1] for an allergen/cuisine pair.
func Risk(allergen, cuisine string) float64 {
	a := canonicalAllergen(allergen)
	c := strings.ToLower(strings.TrimSpace(cuisine))
	if byCuisine, ok := allergenRisk[a]; ok {
		if r, ok := byCuisine[c]; ok {
			return r
		}
	}
	return DefaultRisk
}

func canonicalAllergen(allergen string) string {
	a := strings.ToLower(strings.TrimSpace(allergen))
	if canon, ok := allergenAliases[a]; ok {
		return canon
	}
	return a
}
