package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trip-integrity-service/internal/model"
)

// SegmentRepository holds the materialized mileage chain cache and the efficiency baselines.
type SegmentRepository struct {
	db *gorm.DB
}

func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// ReplaceSegments swaps the cached chain of one vehicle wholesale.
func (r *SegmentRepository) ReplaceSegments(ctx context.Context, orgID, vehicleID uuid.UUID, segments []model.MileageSegment) error {
	db := r.db.WithContext(ctx)
	if err := db.
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		Delete(&model.MileageSegment{}).Error; err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	return db.CreateInBatches(segments, 100).Error
}

func (r *SegmentRepository) ListSegments(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.MileageSegment, error) {
	var segments []model.MileageSegment
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		Order("sequence ASC").
		Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}

func (r *SegmentRepository) GetBaseline(ctx context.Context, orgID, vehicleID uuid.UUID) (*model.FuelEfficiencyBaseline, error) {
	var baseline model.FuelEfficiencyBaseline
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		First(&baseline).Error
	if err != nil {
		return nil, err
	}
	return &baseline, nil
}

func (r *SegmentRepository) SaveBaseline(ctx context.Context, baseline *model.FuelEfficiencyBaseline) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "vehicle_id"}},
			UpdateAll: true,
		}).
		Create(baseline).Error
}
