package model

import (
	"time"

	"github.com/google/uuid"
)

// FuelEfficiencyBaseline is recomputed out of band, never by the synchronous write path.
type FuelEfficiencyBaseline struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"organization_id"`
	VehicleID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"vehicle_id"`
	BaselineKmpl   float64   `gorm:"type:numeric(8,2);not null" json:"baseline_kmpl"`
	StdDevKmpl     float64   `gorm:"type:numeric(8,3);not null" json:"stddev_kmpl"`
	SampleSize     int       `gorm:"not null" json:"sample_size"`
	Confidence     float64   `gorm:"type:numeric(4,3);not null" json:"confidence"`
	ToleranceLow   float64   `gorm:"type:numeric(8,2);not null" json:"tolerance_low"`
	ToleranceHigh  float64   `gorm:"type:numeric(8,2);not null" json:"tolerance_high"`
	ComputedAt     time.Time `gorm:"not null" json:"computed_at"`
}

func (FuelEfficiencyBaseline) TableName() string {
	return "fuel_efficiency_baselines"
}

func (b FuelEfficiencyBaseline) Within(kmpl float64) bool {
	return kmpl >= b.ToleranceLow && kmpl <= b.ToleranceHigh
}
