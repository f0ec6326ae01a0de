package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultCacheTTL is how long cached plans are considered fresh.
const DefaultCacheTTL = 30 * time.Minute

// PlanRecord is one cached payment plan. Data holds the plan as returned by the API.
type PlanRecord struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Status    string `gorm:"index" json:"status"`
	Data      string `json:"data"`
	FetchedAt time.Time
}

// PlanCache keeps the last fetched plan list for offline listing.
type PlanCache struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewPlanCache creates a PlanCache. A non-positive ttl selects DefaultCacheTTL.
func NewPlanCache(db *gorm.DB, ttl time.Duration) *PlanCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PlanCache{db: db, ttl: ttl, now: time.Now}
}

// Replace swaps the cached plans for records.
func (c *PlanCache) Replace(ctx context.Context, records []PlanRecord) error {
	if c.db == nil {
		return fmt.Errorf("plan cache not initialized")
	}
	fetched := c.now()
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PlanRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].FetchedAt = fetched
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to update plan cache")
		return err
	}
	log.Debug().Int("plans", len(records)).Msg("Plan cache updated")
	return nil
}

// List returns the cached plans ordered by ID.
func (c *PlanCache) List(ctx context.Context) ([]PlanRecord, error) {
	if c.db == nil {
		return nil, fmt.Errorf("plan cache not initialized")
	}
	var records []PlanRecord
	if err := c.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		log.Error().Err(err).Msg("Failed to read plan cache")
		return nil, err
	}
	return records, nil
}

// Stale reports whether the cache is empty or older than its TTL.
func (c *PlanCache) Stale(ctx context.Context) (bool, error) {
	if c.db == nil {
		return true, fmt.Errorf("plan cache not initialized")
	}
	var records []PlanRecord
	if err := c.db.WithContext(ctx).Order("fetched_at").Limit(1).Find(&records).Error; err != nil {
		return true, err
	}
	if len(records) == 0 {
		return true, nil
	}
	return c.now().Sub(records[0].FetchedAt) > c.ttl, nil
}

// Invalidate drops every cached plan.
func (c *PlanCache) Invalidate(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("plan cache not initialized")
	}
	return c.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&PlanRecord{}).Error
}
