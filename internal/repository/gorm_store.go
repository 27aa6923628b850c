package repository

import (
	"context"

	"gorm.io/gorm"
)

type GormStore struct {
	*FleetRepository
	*TripRepository
	*SegmentRepository
	*AuditRepository
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		FleetRepository:   NewFleetRepository(db),
		TripRepository:    NewTripRepository(db),
		SegmentRepository: NewSegmentRepository(db),
		AuditRepository:   NewAuditRepository(db),
		db:                db,
	}
}

// WithLocks runs fn in one transaction holding a postgres advisory lock per key.
// The locks are released when the transaction ends.
func (s *GormStore) WithLocks(ctx context.Context, keys []string, fn func(tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range NormalizeLockKeys(keys) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error; err != nil {
				return err
			}
		}
		return fn(NewGormStore(tx))
	})
}
