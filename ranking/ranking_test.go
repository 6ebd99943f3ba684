package ranking

import (
	"math"
	"testing"

	"github.com/aimeeyu8/Tastebuddy/filter"
	"github.com/aimeeyu8/Tastebuddy/models"
)

func TestRankOrdering(t *testing.T) {
	restaurants := []models.Restaurant{
		{Title: "Fancy Sushi", Price: "$$$$", Categories: []string{"Sushi Bars"}, Rating: 4.8, ReviewCount: 900},
		{Title: "Budget Ramen", Price: "$", Categories: []string{"Ramen"}, Rating: 4.2, ReviewCount: 300},
		{Title: "Burger Joint", Price: "$$", Categories: []string{"Burgers"}, Rating: 3.5, ReviewCount: 50},
	}
	prefs := models.PreferenceRecord{Cuisines: []string{"ramen"}, PriceLevels: []int{1, 2}}

	ranked := Rank(restaurants, prefs, nil)
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked, got %d", len(ranked))
	}
	if ranked[0].Title != "Budget Ramen" {
		t.Errorf("expected Budget Ramen first, got %s", ranked[0].Title)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Errorf("expected descending scores, got %v then %v", ranked[i-1].Score, ranked[i].Score)
		}
	}
	if restaurants[0].Title != "Fancy Sushi" {
		t.Error("expected input slice untouched")
	}
}

func TestRankScore(t *testing.T) {
	fraction := 0.2
	report := filter.AllergenReport{"Thai Palace": {Fraction: &fraction}}
	r := models.Restaurant{Title: "Thai Palace", Price: "$$", Categories: []string{"Thai"}, Rating: 4.0, ReviewCount: 1000}

	ranked := Rank([]models.Restaurant{r}, models.PreferenceRecord{Cuisines: []string{"thai"}, PriceLevels: []int{2}}, report)

	want := 0.40*0.8 + 0.20*1.0 + 0.15*1.0 + 0.15*0.8 + 0.10*1.0
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, ranked[0].Score)
	}
}

func TestRankUnknowns(t *testing.T) {
	r := models.Restaurant{Title: "Nowhere"}
	ranked := Rank([]models.Restaurant{r}, models.PreferenceRecord{Cuisines: []string{"thai"}}, nil)

	want := 0.40*0.7 + 0.20*0.6 + 0.15*0.5
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, ranked[0].Score)
	}
}

func TestRankPriceMiss(t *testing.T) {
	r := models.Restaurant{Title: "Steak", Price: "$$$$"}
	ranked := Rank([]models.Restaurant{r}, models.PreferenceRecord{PriceLevels: []int{1}}, nil)

	want := 0.40*0.7 + 0.20*0.3 + 0.15*0.5
	if math.Abs(ranked[0].Score-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, ranked[0].Score)
	}
}

func TestRankStableOnTies(t *testing.T) {
	restaurants := []models.Restaurant{{Title: "First"}, {Title: "Second"}, {Title: "Third"}}
	ranked := Rank(restaurants, models.PreferenceRecord{}, nil)

	for i, want := range []string{"First", "Second", "Third"} {
		if ranked[i].Title != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ranked[i].Title)
		}
	}
}

func TestRestaurants(t *testing.T) {
	ranked := []Ranked{
		{Restaurant: models.Restaurant{Title: "a"}},
		{Restaurant: models.Restaurant{Title: "b"}},
		{Restaurant: models.Restaurant{Title: "c"}},
	}

	if got := Restaurants(ranked, 2); len(got) != 2 || got[1].Title != "b" {
		t.Errorf("expected first two, got %v", got)
	}
	if got := Restaurants(ranked, 0); len(got) != 3 {
		t.Errorf("expected all, got %d", len(got))
	}
}
