package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// MileageSegment spans two consecutive refueling trips of one vehicle. It is derived
// from the trip log and cached; RebuildMileageChain is the only writer.
type MileageSegment struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  uuid.UUID      `gorm:"type:uuid;not null" json:"organization_id"`
	VehicleID       uuid.UUID      `gorm:"type:uuid;not null" json:"vehicle_id"`
	Sequence        int            `gorm:"not null" json:"sequence"`
	StartTripID     uuid.UUID      `gorm:"type:uuid;not null" json:"start_trip_id"`
	EndTripID       uuid.UUID      `gorm:"type:uuid;not null" json:"end_trip_id"`
	StartAt         time.Time      `gorm:"not null" json:"start_at"`
	EndAt           time.Time      `gorm:"not null" json:"end_at"`
	StartOdometerKm float64        `gorm:"type:numeric(12,1);not null" json:"start_odometer_km"`
	EndOdometerKm   float64        `gorm:"type:numeric(12,1);not null" json:"end_odometer_km"`
	DistanceKm      float64        `gorm:"type:numeric(12,1);not null" json:"distance_km"`
	FuelLiters      float64        `gorm:"type:numeric(10,2);not null" json:"fuel_liters"`
	Kmpl            *float64       `gorm:"type:numeric(8,2)" json:"kmpl"`
	TripIDs         pq.StringArray `gorm:"type:text[]" json:"trip_ids"`
	Valid           bool           `gorm:"not null" json:"valid"`
	BreakReason     string         `gorm:"type:varchar(48)" json:"break_reason,omitempty"`
	ComputedAt      time.Time      `gorm:"not null" json:"computed_at"`
}

func (MileageSegment) TableName() string {
	return "mileage_segments"
}

// SameShape compares boundaries and derived values, ignoring ComputedAt.
func (s MileageSegment) SameShape(other MileageSegment) bool {
	if s.ID != other.ID || s.StartTripID != other.StartTripID || s.EndTripID != other.EndTripID ||
		s.DistanceKm != other.DistanceKm || s.FuelLiters != other.FuelLiters || s.Valid != other.Valid {
		return false
	}
	if (s.Kmpl == nil) != (other.Kmpl == nil) {
		return false
	}
	return s.Kmpl == nil || *s.Kmpl == *other.Kmpl
}

type ChainBreakReason string

const (
	ChainBreakNonIncreasingOdometer ChainBreakReason = "non_increasing_odometer"
	ChainBreakNoFuel                ChainBreakReason = "no_fuel_recorded"
	ChainBreakOdometerDiscontinuity ChainBreakReason = "odometer_discontinuity"
	ChainBreakDeletedTrips          ChainBreakReason = "unrepaired_deleted_trips"
	ChainBreakImplausibleEfficiency ChainBreakReason = "implausible_efficiency"
)
