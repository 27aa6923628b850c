package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/metrics"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

type ValidationReport struct {
	Mode         WriteMode             `json:"mode"`
	Accepted     bool                  `json:"accepted"`
	Severity     model.Severity        `json:"severity"`
	RangeOutcome RangeOutcome          `json:"range_outcome"`
	Findings     model.Findings        `json:"findings"`
	Conflicts    []model.Conflict      `json:"conflicts"`
	Audit        model.AuditTrailEntry `json:"audit"`
}

// ValidateTrip runs the range, continuity and overlap stages against the current history without
// writing the trip. When candidate.ID names a live trip the candidate is checked as an edit of it,
// with the same preparation, permission checks and self-exclusion as an update; otherwise as a new
// trip. It records one validation_dry_run audit entry.
func (s *TripService) ValidateTrip(ctx context.Context, principal model.Principal, candidate model.Trip) (*ValidationReport, error) {
	started := s.now()
	mode, trip, err := s.prepareDryRun(ctx, principal, candidate)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{Mode: mode, Accepted: true, Conflicts: []model.Conflict{}}
	rangeResult, err := s.rangeStage(ctx, s.store, trip)
	report.RangeOutcome = rangeResult.Outcome
	if err == nil {
		report.Findings = append(report.Findings, rangeResult.Findings...)
		var staged model.Findings
		staged, err = s.historyStages(ctx, s.store, trip)
		report.Findings = append(report.Findings, staged...)
	}
	if err != nil {
		if !IsRejection(err) {
			return nil, err
		}
		_, rejected := rejectionFindings(err)
		report.Accepted = false
		report.Findings = append(report.Findings, rejected...)
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			report.Conflicts = conflict.Conflicts
		}
	}

	outcome := model.AuditDecisionAccepted
	if !report.Accepted {
		outcome = model.AuditDecisionRejected
	}
	entry, err := appendDecision(ctx, s.store, decision{
		orgID:      trip.OrganizationID,
		actorID:    principal.UserID,
		operation:  model.AuditOpValidationDryRun,
		category:   model.AuditCategoryValidation,
		entityType: model.EntityTypeTrip,
		entityID:   trip.ID.String(),
		outcome:    outcome,
		findings:   report.Findings,
		payload: map[string]any{
			"mode":          string(mode),
			"candidate":     tripSnapshot(trip),
			"range_outcome": string(report.RangeOutcome),
		},
	})
	if err != nil {
		return nil, err
	}
	report.Severity = entry.Severity
	report.Audit = *entry

	metrics.ObserveDecision(string(model.AuditOpValidationDryRun), string(outcome), string(entry.Severity), started)
	return report, nil
}

func (s *TripService) prepareDryRun(ctx context.Context, principal model.Principal, candidate model.Trip) (WriteMode, model.Trip, error) {
	if candidate.ID != uuid.Nil {
		_, err := s.store.GetTrip(ctx, principal.OrgID, candidate.ID)
		switch {
		case err == nil:
			_, trip, err := s.prepareUpdate(ctx, principal, candidate)
			return WriteUpdate, trip, err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return WriteInsert, candidate, storageError("load trip", err)
		}
	}
	trip, err := s.prepareInsert(ctx, principal, candidate)
	return WriteInsert, trip, err
}

type AvailabilityQuery struct {
	VehicleID     *uuid.UUID
	DriverID      *uuid.UUID
	Window        model.TimeWindow
	ExcludeTripID *uuid.UUID
}

// CheckAvailability reports every live trip that the proposed window would collide with. It never writes.
func (s *TripService) CheckAvailability(ctx context.Context, principal model.Principal, q AvailabilityQuery) (*model.Availability, error) {
	if q.VehicleID == nil && q.DriverID == nil {
		return nil, invalidInput("vehicle_id or driver_id is required")
	}
	if !q.Window.Valid() {
		return nil, invalidInput("window end must be after its start")
	}
	exclude := uuid.Nil
	if q.ExcludeTripID != nil {
		exclude = *q.ExcludeTripID
	}

	conflicts := make([]model.Conflict, 0)
	if q.VehicleID != nil {
		trips, err := s.store.ListVehicleTrips(ctx, principal.OrgID, *q.VehicleID)
		if err != nil {
			return nil, storageError("list vehicle trips", err)
		}
		conflicts = append(conflicts, s.overlaps.Conflicts(model.ConflictKindVehicle, principal.OrgID, q.Window, exclude, trips)...)
	}
	if q.DriverID != nil {
		window := q.Window
		trips, err := s.store.ListDriverTrips(ctx, principal.OrgID, *q.DriverID, &window)
		if err != nil {
			return nil, storageError("list driver trips", err)
		}
		conflicts = append(conflicts, s.overlaps.Conflicts(model.ConflictKindDriver, principal.OrgID, q.Window, exclude, trips)...)
	}
	return &model.Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// RebuildMileageChain recomputes every segment of a vehicle from the trip log under the vehicle lock.
func (s *TripService) RebuildMileageChain(ctx context.Context, principal model.Principal, vehicleID uuid.UUID) ([]model.MileageSegment, error) {
	if !principal.CanMaintainChains() {
		return nil, ErrPermissionDenied
	}
	if vehicleID == uuid.Nil {
		return nil, invalidInput("vehicle id is required")
	}

	var segments []model.MileageSegment
	keys := []string{repository.VehicleLockKey(principal.OrgID, vehicleID)}
	err := s.store.WithLocks(ctx, keys, func(tx repository.Repositories) error {
		findings, rebuilt, err := s.rebuildWithin(ctx, tx, principal.OrgID, vehicleID, "manual")
		if err != nil {
			return err
		}
		invalid := 0
		for _, seg := range rebuilt {
			if !seg.Valid {
				invalid++
			}
		}
		severity := model.SeverityInfo
		if invalid > 0 {
			severity = model.SeverityWarning
		}
		if _, err := appendDecision(ctx, tx, decision{
			orgID:      principal.OrgID,
			actorID:    principal.UserID,
			operation:  model.AuditOpChainRebuild,
			category:   model.AuditCategoryMaintenance,
			entityType: model.EntityTypeVehicle,
			entityID:   vehicleID.String(),
			outcome:    model.AuditDecisionRecorded,
			findings:   findings,
			severity:   severity,
			reason:     "Mileage chain rebuilt",
			payload: map[string]any{
				"segments":         len(rebuilt),
				"invalid_segments": invalid,
			},
		}); err != nil {
			return err
		}
		segments = rebuilt
		return nil
	})
	if err != nil {
		return nil, storageError("rebuild mileage chain", err)
	}

	s.log.Info().
		Str("vehicle_id", vehicleID.String()).
		Int("segments", len(segments)).
		Msg("mileage chain rebuilt")
	return segments, nil
}

// PreviewCascadeImpact builds the vehicle's chain with and without the proposed change and lists
// every segment whose efficiency would differ. Nothing is written.
func (s *TripService) PreviewCascadeImpact(ctx context.Context, principal model.Principal, tripID uuid.UUID, change ProposedChange) ([]model.AffectedSegment, error) {
	if !principal.CanWriteTrips() {
		return nil, ErrPermissionDenied
	}
	if change.Empty() {
		return nil, invalidInput("proposed change is empty")
	}
	trip, err := s.store.GetTrip(ctx, principal.OrgID, tripID)
	if err != nil {
		return nil, storageError("load trip", err)
	}
	trips, err := s.store.ListVehicleTripsWithDeleted(ctx, trip.OrganizationID, trip.VehicleID)
	if err != nil {
		return nil, storageError("list vehicle trips", err)
	}

	proposed := make([]model.Trip, len(trips))
	for i, t := range trips {
		if t.ID == trip.ID {
			t = change.Apply(t)
		}
		proposed[i] = t
	}

	at := time.Time{}
	before := s.chain.BuildSegments(trip.OrganizationID, trip.VehicleID, trips, at)
	after := s.chain.BuildSegments(trip.OrganizationID, trip.VehicleID, proposed, at)
	return Diff(before, after), nil
}
