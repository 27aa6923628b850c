package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the tenant boundary. Trips, vehicles and drivers all carry its id.
type Organization struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name     string    `gorm:"type:varchar(255)"`
	IsActive bool      `gorm:"not null;default:true"`
}

func (Organization) TableName() string {
	return "organizations"
}

// Vehicle is a fleet vehicle. A decommissioned vehicle is soft-deleted and accepts no new trips.
type Vehicle struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null"`
	PlateNumber    string         `gorm:"type:varchar(32)"`
	Brand          string         `gorm:"type:varchar(64)"`
	Model          string         `gorm:"type:varchar(64)"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

type Driver struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `gorm:"type:uuid;not null"`
	FullName       string         `gorm:"type:varchar(255)"`
	Phone          string         `gorm:"type:varchar(32)"`
	DeletedAt      gorm.DeletedAt `gorm:"index"`
}

func (Driver) TableName() string {
	return "drivers"
}
