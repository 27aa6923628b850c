package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

// view implements repository.Repositories over a state reached through read and write.
type view struct {
	read  func(fn func(*state))
	write func(fn func(*state) error) error
}

var _ repository.Repositories = view{}

func (v view) GetVehicle(_ context.Context, orgID, vehicleID uuid.UUID) (*model.Vehicle, error) {
	var (
		vehicle *model.Vehicle
		err     error
	)
	v.read(func(s *state) { vehicle, err = s.getVehicle(orgID, vehicleID) })
	return vehicle, err
}

func (v view) GetDriver(_ context.Context, orgID, driverID uuid.UUID) (*model.Driver, error) {
	var (
		driver *model.Driver
		err    error
	)
	v.read(func(s *state) { driver, err = s.getDriver(orgID, driverID) })
	return driver, err
}

func (v view) GetTrip(_ context.Context, orgID, tripID uuid.UUID) (*model.Trip, error) {
	var (
		trip *model.Trip
		err  error
	)
	v.read(func(s *state) { trip, err = s.getTrip(orgID, tripID) })
	return trip, err
}

func (v view) ListVehicleTrips(_ context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error) {
	var trips []model.Trip
	v.read(func(s *state) {
		trips = s.selectTrips(false, func(t model.Trip) bool {
			return t.OrganizationID == orgID && t.VehicleID == vehicleID
		})
	})
	return trips, nil
}

func (v view) ListVehicleTripsWithDeleted(_ context.Context, orgID, vehicleID uuid.UUID) ([]model.Trip, error) {
	var trips []model.Trip
	v.read(func(s *state) {
		trips = s.selectTrips(true, func(t model.Trip) bool {
			return t.OrganizationID == orgID && t.VehicleID == vehicleID
		})
	})
	return trips, nil
}

func (v view) ListDriverTrips(_ context.Context, orgID, driverID uuid.UUID, window *model.TimeWindow) ([]model.Trip, error) {
	var trips []model.Trip
	v.read(func(s *state) {
		trips = s.selectTrips(false, func(t model.Trip) bool {
			if t.OrganizationID != orgID || !t.HasDriver(driverID) {
				return false
			}
			return window == nil || t.Window().Overlaps(*window)
		})
	})
	return trips, nil
}

func (v view) ListTrips(_ context.Context, filter repository.TripFilter) ([]model.Trip, error) {
	var trips []model.Trip
	v.read(func(s *state) { trips = s.listTrips(filter) })
	return trips, nil
}

func (v view) CreateTrip(_ context.Context, trip *model.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if trip.TripType == "" {
		trip.TripType = model.TripTypeNormal
	}
	var now time.Time
	v.read(func(s *state) { now = s.now() })
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = now

	stored := *trip
	return v.write(func(s *state) error {
		cp := stored
		return s.createTrip(&cp)
	})
}

func (v view) UpdateTrip(_ context.Context, trip *model.Trip) error {
	stored := *trip
	return v.write(func(s *state) error {
		cp := stored
		return s.updateTrip(&cp)
	})
}

func (v view) SoftDeleteTrip(_ context.Context, orgID, tripID uuid.UUID, at time.Time) error {
	return v.write(func(s *state) error { return s.softDeleteTrip(orgID, tripID, at) })
}

func (v view) PurgeTrip(_ context.Context, orgID, tripID uuid.UUID) error {
	return v.write(func(s *state) error { return s.purgeTrip(orgID, tripID) })
}

func (v view) UpdateTripEfficiency(_ context.Context, orgID, tripID uuid.UUID, kmpl *float64) error {
	return v.write(func(s *state) error { return s.updateTripEfficiency(orgID, tripID, kmpl) })
}

func (v view) ReplaceSegments(_ context.Context, orgID, vehicleID uuid.UUID, segments []model.MileageSegment) error {
	stored := append([]model.MileageSegment(nil), segments...)
	return v.write(func(s *state) error {
		s.segments[vehicleKey{org: orgID, vehicle: vehicleID}] = append([]model.MileageSegment(nil), stored...)
		return nil
	})
}

func (v view) ListSegments(_ context.Context, orgID, vehicleID uuid.UUID) ([]model.MileageSegment, error) {
	var segments []model.MileageSegment
	v.read(func(s *state) {
		segments = append([]model.MileageSegment{}, s.segments[vehicleKey{org: orgID, vehicle: vehicleID}]...)
	})
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Sequence < segments[j].Sequence })
	return segments, nil
}

func (v view) GetBaseline(_ context.Context, orgID, vehicleID uuid.UUID) (*model.FuelEfficiencyBaseline, error) {
	var (
		baseline model.FuelEfficiencyBaseline
		ok       bool
	)
	v.read(func(s *state) { baseline, ok = s.baselines[vehicleKey{org: orgID, vehicle: vehicleID}] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &baseline, nil
}

func (v view) SaveBaseline(_ context.Context, baseline *model.FuelEfficiencyBaseline) error {
	stored := *baseline
	return v.write(func(s *state) error {
		s.baselines[vehicleKey{org: stored.OrganizationID, vehicle: stored.VehicleID}] = stored
		return nil
	})
}

func (v view) AppendAudit(_ context.Context, entry *model.AuditTrailEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	var createdAt time.Time
	v.read(func(s *state) { createdAt = s.now() })
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = createdAt
	}
	stored := *entry
	return v.write(func(s *state) error {
		cp := stored
		return s.appendAudit(&cp)
	})
}

func (v view) ListAuditByEntity(_ context.Context, orgID uuid.UUID, entityType, entityID string, limit int) ([]model.AuditTrailEntry, error) {
	var entries []model.AuditTrailEntry
	v.read(func(s *state) {
		entries = s.newestFirst(func(e model.AuditTrailEntry) bool {
			return e.OrganizationID == orgID && e.EntityType == entityType && e.EntityID == entityID
		})
	})
	if n := repository.EffectiveLimit(limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (v view) SearchAudit(_ context.Context, filter repository.AuditFilter) ([]model.AuditTrailEntry, int64, error) {
	var entries []model.AuditTrailEntry
	v.read(func(s *state) {
		entries = s.newestFirst(func(e model.AuditTrailEntry) bool { return matchAudit(e, filter) })
	})
	total := int64(len(entries))
	if filter.Offset > 0 {
		if filter.Offset >= len(entries) {
			return []model.AuditTrailEntry{}, total, nil
		}
		entries = entries[filter.Offset:]
	}
	if n := repository.EffectiveLimit(filter.Limit); len(entries) > n {
		entries = entries[:n]
	}
	return entries, total, nil
}

func (v view) AuditRollups(_ context.Context, filter repository.AuditRollupFilter) ([]model.AuditRollup, error) {
	type bucket struct {
		day      time.Time
		severity model.Severity
		op       model.AuditOperation
	}
	counts := make(map[bucket]int64)
	v.read(func(s *state) {
		for _, e := range s.audit {
			if e.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.DateFrom != nil && e.CreatedAt.Before(*filter.DateFrom) {
				continue
			}
			if filter.DateTo != nil && e.CreatedAt.After(*filter.DateTo) {
				continue
			}
			day := e.CreatedAt.UTC().Truncate(24 * time.Hour)
			counts[bucket{day: day, severity: e.Severity, op: e.OperationType}]++
		}
	})

	rollups := make([]model.AuditRollup, 0, len(counts))
	for b, n := range counts {
		rollups = append(rollups, model.AuditRollup{Day: b.day, Severity: b.severity, OperationType: b.op, Count: n})
	}
	sort.Slice(rollups, func(i, j int) bool {
		a, b := rollups[i], rollups[j]
		if !a.Day.Equal(b.Day) {
			return a.Day.Before(b.Day)
		}
		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}
		return a.OperationType < b.OperationType
	})
	return rollups, nil
}
