package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TripType string

const (
	TripTypeNormal        TripType = "normal"
	TripTypeMaintenance   TripType = "maintenance"
	TripTypeTest          TripType = "test"
	TripTypeLongHaul      TripType = "long_haul"
	TripTypeInterstate    TripType = "interstate"
	TripTypeRefuelingOnly TripType = "refueling_only"
)

func (t TripType) Valid() bool {
	switch t {
	case TripTypeNormal, TripTypeMaintenance, TripTypeTest, TripTypeLongHaul, TripTypeInterstate, TripTypeRefuelingOnly:
		return true
	}
	return false
}

// IsLongHaul reports whether the trip type raises the distance and duration ceilings.
func (t TripType) IsLongHaul() bool {
	return t == TripTypeLongHaul || t == TripTypeInterstate
}

type Trip struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	OrganizationID     uuid.UUID       `gorm:"type:uuid;not null" json:"organization_id"`
	TripSerialNumber   string          `gorm:"type:varchar(64);not null" json:"trip_serial_number"`
	VehicleID          uuid.UUID       `gorm:"type:uuid;not null" json:"vehicle_id"`
	DriverID           *uuid.UUID      `gorm:"type:uuid" json:"driver_id"`
	TripStartDate      time.Time       `gorm:"column:trip_start_date;not null" json:"trip_start_date"`
	TripEndDate        time.Time       `gorm:"column:trip_end_date;not null" json:"trip_end_date"`
	StartKm            float64         `gorm:"type:numeric(12,1);not null" json:"start_km"`
	EndKm              float64         `gorm:"type:numeric(12,1);not null" json:"end_km"`
	RefuelingDone      bool            `gorm:"not null;default:false" json:"refueling_done"`
	FuelQuantity       float64         `gorm:"type:numeric(10,2);not null;default:0" json:"fuel_quantity"`
	FuelRatePerLiter   float64         `gorm:"type:numeric(10,2);not null;default:0" json:"fuel_rate_per_liter"`
	FuelEfficiencyKmpl *float64        `gorm:"type:numeric(8,2)" json:"fuel_efficiency_kmpl"`
	FuelExpense        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"fuel_expense"`
	DriverExpense      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"driver_expense"`
	TollExpense        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"toll_expense"`
	OtherExpense       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"other_expense"`
	BreakdownExpense   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"breakdown_expense"`
	MiscExpense        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"misc_expense"`
	TripType           TripType        `gorm:"type:varchar(32);not null;default:'normal'" json:"trip_type"`
	CreatedBy          *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Trip) TableName() string {
	return "trips"
}

func (t *Trip) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.TripType == "" {
		t.TripType = TripTypeNormal
	}
	return nil
}

func (t Trip) Window() TimeWindow {
	return TimeWindow{Start: t.TripStartDate, End: t.TripEndDate}
}

func (t Trip) DistanceKm() float64 {
	return t.EndKm - t.StartKm
}

func (t Trip) DurationHours() float64 {
	return t.TripEndDate.Sub(t.TripStartDate).Hours()
}

// AverageSpeedKmh returns zero when the duration is not positive.
func (t Trip) AverageSpeedKmh() float64 {
	hours := t.DurationHours()
	if hours <= 0 {
		return 0
	}
	return t.DistanceKm() / hours
}

func (t Trip) IsDeleted() bool {
	return t.DeletedAt.Valid
}

func (t Trip) HasDriver(id uuid.UUID) bool {
	return t.DriverID != nil && *t.DriverID == id
}

// SameDriver reports whether both trips carry the same non-nil driver.
func (t Trip) SameDriver(other Trip) bool {
	return t.DriverID != nil && other.HasDriver(*t.DriverID)
}

// TripsByStart orders trips by start date, then by id so that equal starts sort deterministically.
type TripsByStart []Trip

func (s TripsByStart) Len() int      { return len(s) }
func (s TripsByStart) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s TripsByStart) Less(i, j int) bool {
	if !s[i].TripStartDate.Equal(s[j].TripStartDate) {
		return s[i].TripStartDate.Before(s[j].TripStartDate)
	}
	return s[i].ID.String() < s[j].ID.String()
}
