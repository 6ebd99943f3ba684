package search

import (
	"strings"
	"time"

	"github.com/aimeeyu8/Tastebuddy/models"
	"github.com/google/uuid"
)

type searchResponse struct {
	OrganicResults []organicResult `json:"organic_results"`
	Error          string          `json:"error"`
}

type organicResult struct {
	PlaceIDs      []string `json:"place_ids"`
	Title         string   `json:"title"`
	Link          string   `json:"link"`
	Rating        float64  `json:"rating"`
	Reviews       int      `json:"reviews"`
	Price         string   `json:"price"`
	Neighborhoods string   `json:"neighborhoods"`
	Snippet       string   `json:"snippet"`
	Address       string   `json:"address"`
	Categories    []struct {
		Title string `json:"title"`
	} `json:"categories"`
	ReviewHighlights []struct {
		Review    string `json:"review"`
		Highlight string `json:"highlight"`
	} `json:"review_highlights"`
	GPSCoordinates *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"gps_coordinates"`
}

func (o organicResult) normalize() models.Restaurant {
	r := models.Restaurant{
		PlaceIDs:      o.PlaceIDs,
		Title:         o.Title,
		Link:          o.Link,
		Rating:        o.Rating,
		ReviewCount:   o.Reviews,
		Price:         o.Price,
		Neighborhoods: o.Neighborhoods,
		Snippet:       o.Snippet,
		Address:       o.Address,
		FetchedAt:     time.Now().UTC(),
	}

	if len(o.PlaceIDs) > 0 {
		r.ID = o.PlaceIDs[0]
	} else {
		// stable id for results without a place id, so the cache can key them
		r.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(o.Link+"|"+o.Title)).String()
	}

	for _, c := range o.Categories {
		if c.Title != "" {
			r.Categories = append(r.Categories, c.Title)
		}
	}

	for _, h := range o.ReviewHighlights {
		text := strings.TrimSpace(strings.Join(nonEmpty(h.Review, h.Highlight), " "))
		if text != "" {
			r.ReviewHighlights = append(r.ReviewHighlights, text)
		}
	}

	if o.GPSCoordinates != nil {
		r.Location = models.NewGeoPoint(o.GPSCoordinates.Longitude, o.GPSCoordinates.Latitude)
	}

	return r
}

type reviewsResponse struct {
	Reviews []struct {
		Snippet string `json:"snippet"`
		Body    string `json:"body"`
	} `json:"reviews"`
}

// menuContainers are the keys the place engine has used for its menu.
var menuContainers = []string{"full_menu_results", "menu", "menus", "structured_menu"}

// extractMenuTexts flattens a yelp_place response into "title description"
// strings, one per menu item.
func extractMenuTexts(place map[string]any) []string {
	var menu map[string]any
	for _, key := range menuContainers {
		if m, ok := place[key].(map[string]any); ok && len(m) > 0 {
			menu = m
			break
		}
	}
	if menu == nil {
		return nil
	}

	sections, _ := menu["sections"].([]any)
	if len(sections) == 0 {
		sections, _ = menu["items"].([]any)
	}

	var texts []string
	for _, s := range sections {
		section, ok := s.(map[string]any)
		if !ok {
			continue
		}
		items, _ := section["items"].([]any)
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			desc := stringField(item, "description")
			if desc == "" {
				desc = stringField(item, "text")
			}
			combined := strings.TrimSpace(strings.Join(nonEmpty(stringField(item, "title"), desc), " "))
			if combined != "" {
				texts = append(texts, combined)
			}
		}
	}

	return texts
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
