package models

import "strings"

// PreferenceRecord is one user's latest stated dining preferences. A new
// record always replaces the previous one for the same user.
type PreferenceRecord struct {
	Cuisines    []string `json:"cuisine"`
	PriceLevels []int    `json:"price_levels"`
	Allergies   []string `json:"allergies"`
	Location    string   `json:"location"`
	DietRules   []string `json:"diet"`
	Mood        string   `json:"mood,omitempty"`
	Dislikes    []string `json:"dislikes,omitempty"`
}

// NormalizedCuisines returns the stated cuisines lowercased and trimmed,
// dropping empty entries.
func (p PreferenceRecord) NormalizedCuisines() []string {
	return normalizeTerms(p.Cuisines, false)
}

// NormalizedAllergies returns the distinct allergies, lowercased and trimmed.
func (p PreferenceRecord) NormalizedAllergies() []string {
	return NormalizeAllergies(p.Allergies)
}

// NormalizeAllergies lowercases, trims and de-duplicates allergy terms.
func NormalizeAllergies(allergies []string) []string {
	return normalizeTerms(allergies, true)
}

// Levels returns the preferred price levels, or the full range when none
// were stated.
func (p PreferenceRecord) Levels() []int {
	var levels []int
	for _, l := range p.PriceLevels {
		if l >= MinPriceLevel && l <= MaxPriceLevel {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return []int{1, 2, 3, 4}
	}
	return levels
}

// PrimaryCuisine is the search term for the record: the first stated cuisine
// or "food".
func (p PreferenceRecord) PrimaryCuisine() string {
	if c := p.NormalizedCuisines(); len(c) > 0 {
		return c[0]
	}
	return "food"
}

func normalizeTerms(terms []string, dedupe bool) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if dedupe {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
		}
		out = append(out, t)
	}
	return out
}
