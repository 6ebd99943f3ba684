package models

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Location is an optional WGS84 point. Valid is false when the search
// provider reported no coordinates.
type Location struct {
	Lon, Lat float64
	Valid    bool
}

func NewGeoPoint(lng, lat float64) Location {
	return Location{
		Lon:   lng,
		Lat:   lat,
		Valid: true,
	}
}

func (g *Location) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*g = Location{}
		return nil
	case string:
		var err error
		data, err = hex.DecodeString(v)
		if err != nil {
			return err
		}
	case []byte:
		data = v
	default:
		return fmt.Errorf("expected string or []byte, got %T", value)
	}

	t, err := ewkb.Unmarshal(data)
	if err != nil {
		return err
	}

	if point, ok := t.(*geom.Point); ok {
		g.Lon = point.X()
		g.Lat = point.Y()
		g.Valid = true

		return nil
	}

	return fmt.Errorf("expected Point, got %T", t)
}

func (loc Location) GormDataType() string {
	return "geometry"
}

func (loc Location) GormValue(ctx context.Context, db *gorm.DB) clause.Expr {
	if !loc.Valid {
		return clause.Expr{SQL: "NULL"}
	}

	return clause.Expr{
		SQL:  "ST_PointFromText(?)",
		Vars: []interface{}{fmt.Sprintf("POINT(%f %f)", loc.Lon, loc.Lat)},
	}
}

// Restaurant is a search result as returned by the restaurant search
// collaborator. The core only reads it.
type Restaurant struct {
	ID               string         `gorm:"primaryKey" json:"id"`
	PlaceIDs         pq.StringArray `gorm:"type:text[]" json:"place_ids"`
	Title            string         `json:"title"`
	Link             string         `json:"link,omitempty"`
	Rating           float64        `json:"rating"`
	ReviewCount      int            `json:"reviews"`
	Price            string         `json:"price"`
	Categories       pq.StringArray `gorm:"type:text[]" json:"categories"`
	Neighborhoods    string         `json:"neighborhoods,omitempty"`
	Snippet          string         `json:"snippet,omitempty"`
	Address          string         `json:"address,omitempty"`
	ReviewHighlights pq.StringArray `gorm:"type:text[]" json:"review_highlights,omitempty"`
	Location         Location       `json:"-"`
	FetchedAt        time.Time      `json:"-"`
}

func (r *Restaurant) TableName() string {
	return "restaurants"
}

// PlaceID returns the first place id, falling back to ID.
func (r *Restaurant) PlaceID() string {
	if len(r.PlaceIDs) == 0 {
		return r.ID
	}
	return r.PlaceIDs[0]
}

// Key identifies the restaurant in per-restaurant reports.
func (r *Restaurant) Key() string {
	if r.Title != "" {
		return r.Title
	}
	if id := r.PlaceID(); id != "" {
		return id
	}
	return "unknown"
}

// Type joins the category titles, the way the provider's "type" field reads.
func (r *Restaurant) Type() string {
	return strings.Join(r.Categories, ", ")
}

// SearchQuery records which restaurants a cached search returned, in order.
type SearchQuery struct {
	Key           string         `gorm:"primaryKey"`
	RestaurantIDs pq.StringArray `gorm:"type:text[]"`
	FetchedAt     time.Time
}

func (q *SearchQuery) TableName() string {
	return "search_queries"
}

// Menu caches the menu (or review) texts scanned by the allergen filter.
type Menu struct {
	PlaceID   string         `gorm:"primaryKey"`
	Texts     pq.StringArray `gorm:"type:text[]"`
	FetchedAt time.Time
}

func (m *Menu) TableName() string {
	return "menus"
}
