package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"trip-integrity-service/internal/model"
)

// Repositories is the read/write surface the integrity engine works against, either
// directly (read-only sweeps) or inside a locked unit of work.
type Repositories interface {
	GetVehicle(ctx context.Context, orgID, vehicleID uuid.UUID) (*model.Vehicle, error)
	GetDriver(ctx context.Context, orgID, driverID uuid.UUID) (*model.Driver, error)

	GetTrip(ctx context.Context, orgID, tripID uuid.UUID) (*model.Trip, error)
	ListVehicleTrips(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error)
	ListVehicleTripsWithDeleted(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error)
	ListDriverTrips(ctx context.Context, orgID, driverID uuid.UUID, window *model.TimeWindow) ([]model.Trip, error)
	ListTrips(ctx context.Context, filter TripFilter) ([]model.Trip, error)
	CreateTrip(ctx context.Context, trip *model.Trip) error
	UpdateTrip(ctx context.Context, trip *model.Trip) error
	SoftDeleteTrip(ctx context.Context, orgID, tripID uuid.UUID, at time.Time) error
	PurgeTrip(ctx context.Context, orgID, tripID uuid.UUID) error
	UpdateTripEfficiency(ctx context.Context, orgID, tripID uuid.UUID, kmpl *float64) error

	ReplaceSegments(ctx context.Context, orgID, vehicleID uuid.UUID, segments []model.MileageSegment) error
	ListSegments(ctx context.Context, orgID, vehicleID uuid.UUID) ([]model.MileageSegment, error)

	GetBaseline(ctx context.Context, orgID, vehicleID uuid.UUID) (*model.FuelEfficiencyBaseline, error)
	SaveBaseline(ctx context.Context, baseline *model.FuelEfficiencyBaseline) error

	AppendAudit(ctx context.Context, entry *model.AuditTrailEntry) error
	ListAuditByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string, limit int) ([]model.AuditTrailEntry, error)
	SearchAudit(ctx context.Context, filter AuditFilter) ([]model.AuditTrailEntry, int64, error)
	AuditRollups(ctx context.Context, filter AuditRollupFilter) ([]model.AuditRollup, error)
}

// Store adds the serialization point. WithLocks acquires every key (in sorted order)
// for the lifetime of one atomic unit of work: fn's writes commit together or not at all.
type Store interface {
	Repositories
	WithLocks(ctx context.Context, keys []string, fn func(tx Repositories) error) error
}

func VehicleLockKey(orgID, vehicleID uuid.UUID) string {
	return "vehicle:" + orgID.String() + ":" + vehicleID.String()
}

func DriverLockKey(orgID, driverID uuid.UUID) string {
	return "driver:" + orgID.String() + ":" + driverID.String()
}

// NormalizeLockKeys sorts and deduplicates keys so concurrent writers always lock in the same order.
func NormalizeLockKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type TripFilter struct {
	Scope          model.Scope
	DateFrom       *time.Time
	DateTo         *time.Time
	IncludeDeleted bool
	Limit          int
	Offset         int
}

type AuditFilter struct {
	OrganizationID uuid.UUID
	Search         string
	OperationTypes []model.AuditOperation
	Severities     []model.Severity
	EntityTypes    []string
	EntityID       string
	DateFrom       *time.Time
	DateTo         *time.Time
	Limit          int
	Offset         int
}

type AuditRollupFilter struct {
	OrganizationID uuid.UUID
	DateFrom       *time.Time
	DateTo         *time.Time
}

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

// EffectiveLimit applies the default page size for unset limits and caps oversized ones.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
