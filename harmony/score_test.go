package harmony

import (
	"math"
	"testing"

	"github.com/aimeeyu8/Tastebuddy/models"
)

func TestScoreSoloUser(t *testing.T) {
	rec := models.PreferenceRecord{Cuisines: []string{"thai"}, PriceLevels: []int{4}, Allergies: []string{"peanut"}}

	if got := Score("alice", rec, Snapshot{"alice": rec}); got != 1.0 {
		t.Errorf("expected 1.0 for a solo user, got %v", got)
	}
	if got := Score("alice", rec, Snapshot{}); got != 1.0 {
		t.Errorf("expected 1.0 for an empty group, got %v", got)
	}
}

func TestScoreMatchingSushiPair(t *testing.T) {
	a := models.PreferenceRecord{Cuisines: []string{"sushi"}, PriceLevels: []int{2}}
	b := models.PreferenceRecord{Cuisines: []string{"sushi"}, PriceLevels: []int{2}}
	snap := Snapshot{"a": a, "b": b}

	for id, rec := range snap {
		got := Score(id, rec, snap)
		if got < 0.8 {
			t.Errorf("%s: expected harmony >= 0.8, got %v", id, got)
		}
		if math.Abs(got-1.0) > 1e-9 {
			t.Errorf("%s: expected harmony 1.0, got %v", id, got)
		}
	}
}

func TestScoreAllergenRisk(t *testing.T) {
	a := models.PreferenceRecord{Cuisines: []string{"sushi"}, Allergies: []string{"shellfish"}}
	b := models.PreferenceRecord{Cuisines: []string{"sushi"}}
	snap := Snapshot{"a": a, "b": b}

	got := Score("a", a, snap)
	// 0.3*1.0 + 0.4*1.0 + 0.3*(1-0.9)
	if math.Abs(got-0.73) > 1e-9 {
		t.Errorf("expected 0.73, got %v", got)
	}

	noAllergy := Score("b", b, snap)
	if got >= noAllergy {
		t.Errorf("expected allergy to reduce harmony: %v >= %v", got, noAllergy)
	}
}

func TestScoreIdenticalBeatsDisjoint(t *testing.T) {
	same := Snapshot{
		"a": {Cuisines: []string{"italian"}, PriceLevels: []int{2}},
		"b": {Cuisines: []string{"italian"}, PriceLevels: []int{2}},
	}
	apart := Snapshot{
		"a": {Cuisines: []string{"italian"}, PriceLevels: []int{1}},
		"b": {Cuisines: []string{"korean"}, PriceLevels: []int{4}},
	}

	identical := Score("a", same["a"], same)
	disjoint := Score("a", apart["a"], apart)
	if identical < disjoint {
		t.Errorf("expected identical (%v) >= disjoint (%v)", identical, disjoint)
	}
	// 0.3*0 + 0.4*(1-0.75) + 0.3*1
	if math.Abs(disjoint-0.4) > 1e-9 {
		t.Errorf("expected disjoint 0.4, got %v", disjoint)
	}
}

func TestScoreNoCuisineIsNeutral(t *testing.T) {
	snap := Snapshot{
		"a": {},
		"b": {Cuisines: []string{"thai"}},
	}
	// 0.3*0.5 + 0.4*1 + 0.3*1
	if got := Score("a", snap["a"], snap); math.Abs(got-0.85) > 1e-9 {
		t.Errorf("expected 0.85, got %v", got)
	}
}

func TestScoreBestCuisineOverlap(t *testing.T) {
	snap := Snapshot{
		"a": {Cuisines: []string{"mexican", "thai"}},
		"b": {Cuisines: []string{"thai"}},
		"c": {Cuisines: []string{"thai", "mexican"}},
		"d": {Cuisines: []string{"pizza"}},
	}
	// thai is shared by 2 of 3 others.
	want := 0.3*(2.0/3.0) + 0.4 + 0.3
	if got := Score("a", snap["a"], snap); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestScoreAllergyWithoutOtherCuisines(t *testing.T) {
	snap := Snapshot{
		"a": {Cuisines: []string{"thai"}, Allergies: []string{"peanut"}},
		"b": {},
	}
	// cuisine 0, price 1, allergy 1 (no pairs)
	if got := Score("a", snap["a"], snap); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("expected 0.7, got %v", got)
	}
}

func TestScoreIsReadOnly(t *testing.T) {
	committed := models.PreferenceRecord{Cuisines: []string{"sushi"}}
	snap := Snapshot{"a": committed, "b": {Cuisines: []string{"sushi"}}}

	whatIf := models.PreferenceRecord{Cuisines: []string{"pizza"}}
	_ = Score("a", whatIf, snap)

	if got := snap["a"].Cuisines[0]; got != "sushi" {
		t.Errorf("expected snapshot unchanged, got cuisine %q", got)
	}
}

func TestCustomWeights(t *testing.T) {
	snap := Snapshot{
		"a": {Cuisines: []string{"thai"}},
		"b": {Cuisines: []string{"pizza"}},
	}
	w := Weights{Cuisine: 1}
	if got := w.Score("a", snap["a"], snap); got != 0 {
		t.Errorf("expected 0 with cuisine-only weights, got %v", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, "very aligned with the group"},
		{0.7, "mostly aligned with the group"},
		{0.4, "somewhat different from the group"},
		{0.1, "quite different from the group"},
	}
	for _, tt := range tests {
		if got := Label(tt.score); got != tt.want {
			t.Errorf("Label(%v): expected %q, got %q", tt.score, tt.want, got)
		}
	}
}
