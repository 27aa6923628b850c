package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
)

// FleetRepository resolves the vehicles and drivers trips refer to. Soft-deleted rows are not found.
type FleetRepository struct {
	db *gorm.DB
}

func NewFleetRepository(db *gorm.DB) *FleetRepository {
	return &FleetRepository{db: db}
}

func (r *FleetRepository) GetVehicle(ctx context.Context, orgID, vehicleID uuid.UUID) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, vehicleID).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *FleetRepository) GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*model.Driver, error) {
	var driver model.Driver
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id = ?", orgID, driverID).
		First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}
