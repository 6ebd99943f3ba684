package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aimeeyu8/Tastebuddy/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PgCache keeps search results and menus in postgres for ttl.
type PgCache struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewPgCache(connStr string, ttl time.Duration) (*PgCache, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		},
	)

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	return &PgCache{db: db, ttl: ttl}, nil
}

// Migrate creates the cache tables. Restaurant locations need PostGIS.
func (p *PgCache) Migrate(ctx context.Context) error {
	db := p.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return fmt.Errorf("failed to enable postgis: %w", err)
	}
	if err := db.AutoMigrate(&models.Restaurant{}, &models.SearchQuery{}, &models.Menu{}); err != nil {
		return fmt.Errorf("failed to migrate cache tables: %w", err)
	}
	return nil
}

func (p *PgCache) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PgCache) fresh(fetchedAt time.Time) bool {
	return p.ttl <= 0 || time.Since(fetchedAt) < p.ttl
}

func (p *PgCache) Search(ctx context.Context, key string) ([]models.Restaurant, bool, error) {
	var query models.SearchQuery
	err := p.db.WithContext(ctx).Where("key = ?", key).First(&query).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load search %q: %w", key, err)
	}
	if !p.fresh(query.FetchedAt) {
		return nil, false, nil
	}
	if len(query.RestaurantIDs) == 0 {
		return []models.Restaurant{}, true, nil
	}

	var rows []models.Restaurant
	if err := p.db.WithContext(ctx).Where("id IN ?", []string(query.RestaurantIDs)).Find(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("failed to load restaurants: %w", err)
	}

	byID := make(map[string]models.Restaurant, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	restaurants := make([]models.Restaurant, 0, len(query.RestaurantIDs))
	for _, id := range query.RestaurantIDs {
		r, ok := byID[id]
		if !ok {
			// partially evicted; refetch everything
			return nil, false, nil
		}
		restaurants = append(restaurants, r)
	}

	return restaurants, true, nil
}

func (p *PgCache) StoreSearch(ctx context.Context, key string, restaurants []models.Restaurant) error {
	now := time.Now().UTC()
	rows := make([]models.Restaurant, len(restaurants))
	ids := make([]string, len(restaurants))
	for i, r := range restaurants {
		r.FetchedAt = now
		rows[i] = r
		ids[i] = r.ID
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(rows) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert restaurants: %w", err)
			}
		}

		query := models.SearchQuery{Key: key, RestaurantIDs: ids, FetchedAt: now}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&query).Error; err != nil {
			return fmt.Errorf("failed to upsert search %q: %w", key, err)
		}
		return nil
	})
}

func (p *PgCache) Menu(ctx context.Context, placeID string) ([]string, bool, error) {
	var menu models.Menu
	err := p.db.WithContext(ctx).Where("place_id = ?", placeID).First(&menu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load menu %q: %w", placeID, err)
	}
	if !p.fresh(menu.FetchedAt) {
		return nil, false, nil
	}
	return menu.Texts, true, nil
}

func (p *PgCache) StoreMenu(ctx context.Context, placeID string, texts []string) error {
	menu := models.Menu{PlaceID: placeID, Texts: texts, FetchedAt: time.Now().UTC()}
	if err := p.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&menu).Error; err != nil {
		return fmt.Errorf("failed to upsert menu %q: %w", placeID, err)
	}
	return nil
}
