package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaStore implements the quota store using a SQL transaction per update
type QuotaStore struct {
	db *gorm.DB
}

// NewQuotaStore creates a new SQL quota store
func NewQuotaStore(db *gorm.DB) *QuotaStore {
	return &QuotaStore{db: db}
}

var _ outbound.QuotaStore = (*QuotaStore)(nil)

// Get returns the record for key, or nil when none exists
func (s *QuotaStore) Get(ctx context.Context, key string) (*quota.Record, error) {
	var model QuotaModel
	err := s.db.WithContext(ctx).Where("quota_key = ?", key).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if model.Count == 0 {
		return nil, nil
	}
	return model.toDomain(), nil
}

// Update inserts a zero-count row if none exists, locks it, and applies fn.
// A zero-count row is presented to fn as absent.
func (s *QuotaStore) Update(ctx context.Context, key string, fn quota.UpdateFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		placeholder := QuotaModel{QuotaKey: key, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&placeholder).Error; err != nil {
			return err
		}

		var model QuotaModel
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("quota_key = ?", key).Take(&model).Error; err != nil {
			return err
		}

		var current *quota.Record
		if model.Count > 0 {
			current = model.toDomain()
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		return tx.Model(&QuotaModel{}).
			Where("quota_key = ?", key).
			Updates(map[string]interface{}{
				"identity":   next.Identity,
				"date":       next.Date,
				"count":      next.Count,
				"tier":       string(next.Tier),
				"updated_at": next.UpdatedAt,
			}).Error
	})
}

// PurgeBefore deletes records for dates earlier than date
func (s *QuotaStore) PurgeBefore(ctx context.Context, date string) (int64, error) {
	result := s.db.WithContext(ctx).Where("date < ?", date).Delete(&QuotaModel{})
	return result.RowsAffected, result.Error
}
