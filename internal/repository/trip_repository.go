package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trip-integrity-service/internal/model"
)

type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) GetTrip(ctx context.Context, orgID, tripID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, tripID).
		First(&trip).Error
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *TripRepository) ListVehicleTrips(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error) {
	var trips []model.Trip
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		Order("trip_start_date ASC, id ASC").
		Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

// ListVehicleTripsWithDeleted includes soft-deleted rows; chain break detection needs them.
func (r *TripRepository) ListVehicleTripsWithDeleted(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error) {
	var trips []model.Trip
	if err := r.db.WithContext(ctx).
		Unscoped().
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		Order("trip_start_date ASC, id ASC").
		Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *TripRepository) ListDriverTrips(ctx context.Context, orgID, driverID uuid.UUID, window *model.TimeWindow) ([]model.Trip, error) {
	query := r.db.WithContext(ctx).
		Where("organization_id = ? AND driver_id = ?", orgID, driverID)
	if window != nil {
		query = query.Where("trip_start_date < ? AND trip_end_date > ?", window.End, window.Start)
	}

	var trips []model.Trip
	if err := query.Order("trip_start_date ASC, id ASC").Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

// ListTrips returns every matching trip when Limit is zero; sweeps page their own output.
func (r *TripRepository) ListTrips(ctx context.Context, filter TripFilter) ([]model.Trip, error) {
	query := r.db.WithContext(ctx).Model(&model.Trip{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}
	query = applyScopeFilter(query, filter.Scope)

	if filter.DateFrom != nil {
		query = query.Where("trip_end_date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("trip_start_date <= ?", *filter.DateTo)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(EffectiveLimit(filter.Limit))
	}

	var trips []model.Trip
	if err := query.Order("trip_start_date ASC, id ASC").Find(&trips).Error; err != nil {
		return nil, err
	}
	return trips, nil
}

func (r *TripRepository) CreateTrip(ctx context.Context, trip *model.Trip) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(trip).Error
}

func (r *TripRepository) UpdateTrip(ctx context.Context, trip *model.Trip) error {
	res := r.db.WithContext(ctx).
		Model(&model.Trip{}).
		Where("organization_id = ? AND id = ?", trip.OrganizationID, trip.ID).
		Select("*").
		Omit("id", "organization_id", "created_at", "created_by", "deleted_at", clause.Associations).
		Updates(trip)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TripRepository) SoftDeleteTrip(ctx context.Context, orgID, tripID uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Trip{}).
		Where("organization_id = ? AND id = ?", orgID, tripID).
		Update("deleted_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TripRepository) PurgeTrip(ctx context.Context, orgID, tripID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("organization_id = ? AND id = ?", orgID, tripID).
		Delete(&model.Trip{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTripEfficiency writes the chain-derived kmpl without touching updated_at.
func (r *TripRepository) UpdateTripEfficiency(ctx context.Context, orgID, tripID uuid.UUID, kmpl *float64) error {
	return r.db.WithContext(ctx).
		Model(&model.Trip{}).
		Where("organization_id = ? AND id = ?", orgID, tripID).
		UpdateColumn("fuel_efficiency_kmpl", kmpl).Error
}

func applyScopeFilter(query *gorm.DB, scope model.Scope) *gorm.DB {
	query = query.Where("trips.organization_id = ?", scope.OrganizationID)
	if scope.VehicleID != nil {
		query = query.Where("trips.vehicle_id = ?", *scope.VehicleID)
	}
	if scope.DriverID != nil {
		query = query.Where("trips.driver_id = ?", *scope.DriverID)
	}
	return query
}
