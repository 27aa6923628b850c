package model

import "github.com/google/uuid"

type TripBrief struct {
	ID               uuid.UUID  `json:"id"`
	TripSerialNumber string     `json:"trip_serial_number"`
	VehicleID        uuid.UUID  `json:"vehicle_id"`
	DriverID         *uuid.UUID `json:"driver_id,omitempty"`
	Window           TimeWindow `json:"window"`
	StartKm          float64    `json:"start_km"`
	EndKm            float64    `json:"end_km"`
}

func BriefOf(t Trip) TripBrief {
	return TripBrief{
		ID:               t.ID,
		TripSerialNumber: t.TripSerialNumber,
		VehicleID:        t.VehicleID,
		DriverID:         t.DriverID,
		Window:           t.Window(),
		StartKm:          t.StartKm,
		EndKm:            t.EndKm,
	}
}

type ConflictKind string

const (
	ConflictKindVehicle ConflictKind = "vehicle"
	ConflictKindDriver  ConflictKind = "driver"
)

// Conflict describes one existing trip that a proposed window intersects.
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	Trip           TripBrief    `json:"trip"`
	OverlapType    OverlapType  `json:"overlap_type"`
	OverlapMinutes float64      `json:"overlap_minutes"`
}

type Availability struct {
	Available bool       `json:"available"`
	Conflicts []Conflict `json:"conflicts"`
}

type OverlapSeverity string

const (
	OverlapSeverityCritical OverlapSeverity = "critical"
	OverlapSeverityHigh     OverlapSeverity = "high"
	OverlapSeverityMedium   OverlapSeverity = "medium"
)

// OverlapRecord is one pair found by a retroactive overlap sweep.
type OverlapRecord struct {
	Kind           ConflictKind    `json:"kind"`
	First          TripBrief       `json:"first"`
	Second         TripBrief       `json:"second"`
	OverlapType    OverlapType     `json:"overlap_type"`
	OverlapMinutes float64         `json:"overlap_minutes"`
	Severity       OverlapSeverity `json:"severity"`
	Remediation    string          `json:"remediation"`
}

type GapKind string

const (
	GapNegative GapKind = "negative_gap"
	GapLarge    GapKind = "large_gap"
)

type GapRecord struct {
	VehicleID   uuid.UUID `json:"vehicle_id"`
	Predecessor TripBrief `json:"predecessor"`
	Successor   TripBrief `json:"successor"`
	GapKm       float64   `json:"gap_km"`
	Kind        GapKind   `json:"kind"`
	Severity    Severity  `json:"severity"`
}

type AnomalyBucket struct {
	Code           string      `json:"code"`
	Severity       Severity    `json:"severity"`
	Count          int         `json:"count"`
	TripIDs        []uuid.UUID `json:"trip_ids"`
	Recommendation string      `json:"recommendation"`
}

type ChainBreakRecord struct {
	VehicleID      uuid.UUID        `json:"vehicle_id"`
	StartTripID    uuid.UUID        `json:"start_trip_id"`
	EndTripID      uuid.UUID        `json:"end_trip_id"`
	StartSerial    string           `json:"start_serial"`
	EndSerial      string           `json:"end_serial"`
	Reason         ChainBreakReason `json:"reason"`
	Severity       Severity         `json:"severity"`
	Detail         string           `json:"detail"`
	DeletedTripIDs []uuid.UUID      `json:"deleted_trip_ids,omitempty"`
}

type SegmentChange string

const (
	SegmentModified SegmentChange = "modified"
	SegmentAdded    SegmentChange = "added"
	SegmentRemoved  SegmentChange = "removed"
)

// AffectedSegment is one segment whose derived efficiency a proposed correction would change.
type AffectedSegment struct {
	StartTripID    uuid.UUID     `json:"start_trip_id"`
	EndTripID      uuid.UUID     `json:"end_trip_id"`
	TripIDs        []uuid.UUID   `json:"trip_ids"`
	BeforeDistance *float64      `json:"before_distance_km"`
	AfterDistance  *float64      `json:"after_distance_km"`
	BeforeKmpl     *float64      `json:"before_kmpl"`
	AfterKmpl      *float64      `json:"after_kmpl"`
	BeforeValid    bool          `json:"before_valid"`
	AfterValid     bool          `json:"after_valid"`
	Change         SegmentChange `json:"change"`
}
