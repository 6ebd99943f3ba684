package filter

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aimeeyu8/Tastebuddy/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAllergenThreshold = 0.3
	defaultMenuConcurrency   = 4
)

// MenuSource returns the menu item texts of a place. Implementations may fall
// back to review texts when the place has no menu.
type MenuSource interface {
	MenuTexts(ctx context.Context, placeID string) ([]string, error)
}

// AllergenFinding explains one allergen decision.
type AllergenFinding struct {
	PlaceID            string   `json:"place_id"`
	MenuItems          int      `json:"menu_items"`
	Hits               int      `json:"allergen_hits"`
	Fraction           *float64 `json:"fraction"`
	Blocked            bool     `json:"blocked"`
	UsedReviewFallback bool     `json:"used_review_fallback"`
}

// AllergenReport maps Restaurant.Key to its finding.
type AllergenReport map[string]AllergenFinding

// Fraction returns the allergen fraction recorded for r, if it is known.
func (rep AllergenReport) Fraction(r models.Restaurant) (float64, bool) {
	if rep == nil {
		return 0, false
	}
	f, ok := rep[r.Key()]
	if !ok || f.Fraction == nil {
		return 0, false
	}
	return *f.Fraction, true
}

type AllergenFilter struct {
	menus       MenuSource
	threshold   float64
	concurrency int
	logger      *slog.Logger
}

func NewAllergenFilter(menus MenuSource, threshold float64, concurrency int, logger *slog.Logger) *AllergenFilter {
	if threshold <= 0 {
		threshold = DefaultAllergenThreshold
	}
	if concurrency < 1 {
		concurrency = defaultMenuConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AllergenFilter{
		menus:       menus,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Filter drops restaurants whose menu mentions an allergen in at least the
// threshold fraction of items. Restaurants with no texts to inspect are kept.
// Order is preserved. With no allergies the input is returned unchanged.
func (f *AllergenFilter) Filter(ctx context.Context, restaurants []models.Restaurant, allergies []string) ([]models.Restaurant, AllergenReport) {
	terms := models.NormalizeAllergies(allergies)
	if len(terms) == 0 {
		return restaurants, AllergenReport{}
	}

	findings := make([]AllergenFinding, len(restaurants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i := range restaurants {
		g.Go(func() error {
			findings[i] = f.inspect(gctx, restaurants[i], terms)
			return nil
		})
	}
	_ = g.Wait()

	safe := make([]models.Restaurant, 0, len(restaurants))
	report := make(AllergenReport, len(restaurants))
	for i, r := range restaurants {
		report[r.Key()] = findings[i]
		if !findings[i].Blocked {
			safe = append(safe, r)
		}
	}

	return safe, report
}

func (f *AllergenFilter) inspect(ctx context.Context, r models.Restaurant, terms []string) AllergenFinding {
	finding := AllergenFinding{PlaceID: r.PlaceID()}

	var texts []string
	if f.menus != nil && finding.PlaceID != "" {
		menu, err := f.menus.MenuTexts(ctx, finding.PlaceID)
		if err != nil {
			f.logger.Warn("failed to fetch menu", "place_id", finding.PlaceID, "error", err)
		}
		texts = menu
	}
	if len(texts) == 0 {
		texts = r.ReviewHighlights
		finding.UsedReviewFallback = len(texts) > 0
	}

	finding.MenuItems = len(texts)
	if finding.MenuItems == 0 {
		return finding
	}

	for _, text := range texts {
		if containsAny(strings.ToLower(text), terms) {
			finding.Hits++
		}
	}

	fraction := float64(finding.Hits) / float64(finding.MenuItems)
	finding.Fraction = &fraction
	finding.Blocked = fraction >= f.threshold

	return finding
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
