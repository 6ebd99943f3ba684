package filter

import (
	"regexp"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/models"
)

type dietRule struct {
	names   []string
	pattern *regexp.Regexp
	// require flips the rule: the text must match instead of must not.
	require bool
}

var dietRules = []dietRule{
	{names: []string{"no pork", "pork-free", "avoid pork"}, pattern: regexp.MustCompile(`pork|tonkotsu`)},
	{names: []string{"no beef", "beef-free"}, pattern: regexp.MustCompile(`beef|steak|brisket`)},
	{names: []string{"no chicken", "chicken-free"}, pattern: regexp.MustCompile(`chicken`)},
	{names: []string{"no shellfish", "shellfish-free"}, pattern: regexp.MustCompile(`shrimp|lobster|crab|clam`)},
	{names: []string{"no nuts", "nut-free"}, pattern: regexp.MustCompile(`peanut|almond|cashew|walnut`)},
	{names: []string{"no dairy", "dairy-free"}, pattern: regexp.MustCompile(`cheese|cream|milk|butter`)},
	{names: []string{"no gluten", "gluten-free"}, pattern: regexp.MustCompile(`wheat|ramen|bread|pasta`)},
	{names: []string{"no soy", "soy-free"}, pattern: regexp.MustCompile(`soy`)},
	{names: []string{"no spicy", "not spicy"}, pattern: regexp.MustCompile(`spicy`)},
	{names: []string{"low sugar", "sugar-free"}, pattern: regexp.MustCompile(`dessert|cake|ice cream`)},
	{names: []string{"low carb", "keto"}, pattern: regexp.MustCompile(`bread|rice|noodle|pasta`)},

	{names: []string{"vegan"}, pattern: regexp.MustCompile(`vegan|plant|vegetable`), require: true},
	{names: []string{"vegetarian"}, pattern: regexp.MustCompile(`veg`), require: true},
	{names: []string{"halal"}, pattern: regexp.MustCompile(`halal`), require: true},
	{names: []string{"kosher"}, pattern: regexp.MustCompile(`kosher`), require: true},
	{names: []string{"healthy", "light", "low calorie", "low-calorie"}, pattern: regexp.MustCompile(`healthy|salad|light|fresh`), require: true},
}

// FilterDiet keeps restaurants whose title, categories and address satisfy
// every recognised rule. Unrecognised rules are ignored.
func FilterDiet(restaurants []models.Restaurant, rules []string) []models.Restaurant {
	active := activeRules(rules)
	if len(active) == 0 {
		return restaurants
	}

	safe := make([]models.Restaurant, 0, len(restaurants))
	for _, r := range restaurants {
		text := strings.ToLower(r.Title + " " + r.Type() + " " + strings.Join(strings.Fields(r.Address), " "))
		if allows(active, text) {
			safe = append(safe, r)
		}
	}

	return safe
}

func activeRules(rules []string) []dietRule {
	var active []dietRule
	for _, raw := range rules {
		name := strings.ToLower(strings.TrimSpace(raw))
		for _, rule := range dietRules {
			if containsName(rule.names, name) {
				active = append(active, rule)
			}
		}
	}
	return active
}

func allows(rules []dietRule, text string) bool {
	for _, rule := range rules {
		if rule.pattern.MatchString(text) != rule.require {
			return false
		}
	}
	return true
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
