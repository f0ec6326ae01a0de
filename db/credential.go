package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habedi/paydash/auth"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Credential is one named credential slot.
type Credential struct {
	Name      string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

// CredentialRepository is the SQLite-backed credential store.
// It implements auth.CredentialStore and auth.SessionWriter.
type CredentialRepository struct{ db *gorm.DB }

var (
	_ auth.CredentialStore = (*CredentialRepository)(nil)
	_ auth.SessionWriter   = (*CredentialRepository)(nil)
)

// NewCredentialRepository creates a CredentialRepository. Accepts *gorm.DB to avoid global access.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Get(ctx context.Context, name string) (string, bool, error) {
	if r.db == nil {
		return "", false, fmt.Errorf("repository not initialized")
	}
	var c Credential
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		log.Error().Err(err).Str("slot", name).Msg("Failed to read credential")
		return "", false, err
	}
	return c.Value, true, nil
}

func (r *CredentialRepository) Set(ctx context.Context, name, value string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return upsertCredential(r.db.WithContext(ctx), name, value)
}

func (r *CredentialRepository) Clear(ctx context.Context, name string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Delete(&Credential{}, "name = ?", name).Error
}

func (r *CredentialRepository) ClearAll(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Credential{}).Error
}

// SetSession writes both slots in one transaction.
func (r *CredentialRepository) SetSession(ctx context.Context, access, refresh string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertCredential(tx, auth.RefreshSlot, refresh); err != nil {
			return err
		}
		return upsertCredential(tx, auth.AccessSlot, access)
	})
}

func upsertCredential(tx *gorm.DB, name, value string) error {
	c := Credential{Name: name, Value: value, UpdatedAt: time.Now()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&c).Error
	if err != nil {
		log.Error().Err(err).Str("slot", name).Msg("Failed to save credential")
	}
	return err
}
