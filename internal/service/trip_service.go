package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/metrics"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

type WriteMode string

const (
	WriteInsert WriteMode = "insert"
	WriteUpdate WriteMode = "update"
	WriteDelete WriteMode = "delete"
)

func (m WriteMode) operation() model.AuditOperation {
	switch m {
	case WriteUpdate:
		return model.AuditOpTripUpdate
	case WriteDelete:
		return model.AuditOpTripDelete
	default:
		return model.AuditOpTripInsert
	}
}

type WriteOptions struct {
	HardDelete bool
	Reason     string
}

type SerialSource interface {
	Next() string
}

// CommitResult is what the write path returns for an accepted write. AuditEntries always holds
// exactly one entry.
type CommitResult struct {
	Mode         WriteMode               `json:"mode"`
	Trip         *model.Trip             `json:"trip"`
	Severity     model.Severity          `json:"severity"`
	RangeOutcome RangeOutcome            `json:"range_outcome,omitempty"`
	Findings     model.Findings          `json:"findings"`
	Segments     []model.MileageSegment  `json:"segments"`
	AuditEntries []model.AuditTrailEntry `json:"audit_entries"`
}

type TripService struct {
	store    repository.Store
	cfg      config.IntegrityConfig
	ranges   *RangeValidator
	odometer *OdometerValidator
	overlaps *OverlapDetector
	chain    *MileageChain
	serials  SerialSource
	log      zerolog.Logger
	now      func() time.Time
}

func NewTripService(store repository.Store, cfg config.IntegrityConfig, serials SerialSource, log zerolog.Logger) *TripService {
	return &TripService{
		store:    store,
		cfg:      cfg,
		ranges:   NewRangeValidator(cfg),
		odometer: NewOdometerValidator(cfg),
		overlaps: NewOverlapDetector(cfg),
		chain:    NewMileageChain(cfg),
		serials:  serials,
		log:      log,
		now:      time.Now,
	}
}

// ValidateAndCommitTrip is the synchronous gate in front of every trip write. Stages run in a fixed
// order (range, continuity, overlap) and the first rejection stops the pipeline. An accepted write
// commits the trip, the rebuilt mileage chain and one audit entry together under the vehicle and
// driver locks. A rejection is recorded after the rollback.
func (s *TripService) ValidateAndCommitTrip(ctx context.Context, principal model.Principal, candidate model.Trip, mode WriteMode, opts WriteOptions) (*CommitResult, error) {
	started := s.now()

	var (
		result  *CommitResult
		subject model.Trip
		err     error
	)
	switch mode {
	case WriteInsert:
		subject, err = s.prepareInsert(ctx, principal, candidate)
		if err == nil {
			result, err = s.insert(ctx, principal, subject)
		}
	case WriteUpdate:
		var existing *model.Trip
		existing, subject, err = s.prepareUpdate(ctx, principal, candidate)
		if err == nil {
			result, err = s.update(ctx, principal, *existing, subject)
		}
	case WriteDelete:
		subject, err = s.loadForDelete(ctx, principal, candidate.ID)
		if err == nil {
			result, err = s.delete(ctx, principal, subject, opts)
		}
	default:
		err = invalidInput("unknown write mode %q", mode)
	}

	if err != nil {
		if IsRejection(err) {
			s.recordRejection(ctx, principal, mode, subject, err, started)
		}
		return nil, err
	}

	metrics.ObserveDecision(string(mode.operation()), string(model.AuditDecisionAccepted), string(result.Severity), started)
	event := s.log.Debug()
	if result.Severity.AtLeast(model.SeverityWarning) {
		event = s.log.Info()
	}
	event.
		Str("mode", string(mode)).
		Str("trip_id", subject.ID.String()).
		Str("vehicle_id", subject.VehicleID.String()).
		Str("organization_id", subject.OrganizationID.String()).
		Str("severity", string(result.Severity)).
		Int("findings", len(result.Findings)).
		Msg("trip write accepted")
	return result, nil
}

func (s *TripService) insert(ctx context.Context, principal model.Principal, trip model.Trip) (*CommitResult, error) {
	rangeResult, err := s.rangeStage(ctx, s.store, trip)
	if err != nil {
		return nil, err
	}

	var result *CommitResult
	err = s.store.WithLocks(ctx, tripLockKeys(trip), func(tx repository.Repositories) error {
		findings := append(model.Findings{}, rangeResult.Findings...)

		staged, err := s.historyStages(ctx, tx, trip)
		if err != nil {
			return err
		}
		findings = append(findings, staged...)

		if err := tx.CreateTrip(ctx, &trip); err != nil {
			return storageError("create trip", err)
		}

		chainFindings, segments, err := s.rebuildWithin(ctx, tx, trip.OrganizationID, trip.VehicleID, string(WriteInsert))
		if err != nil {
			return err
		}
		findings = append(findings, chainFindings...)

		committed, err := tx.GetTrip(ctx, trip.OrganizationID, trip.ID)
		if err != nil {
			return storageError("reload trip", err)
		}

		entry, err := appendDecision(ctx, tx, decision{
			orgID:      trip.OrganizationID,
			actorID:    principal.UserID,
			operation:  model.AuditOpTripInsert,
			category:   model.AuditCategoryValidation,
			entityType: model.EntityTypeTrip,
			entityID:   trip.ID.String(),
			outcome:    model.AuditDecisionAccepted,
			findings:   findings,
			payload: map[string]any{
				"after":         tripSnapshot(*committed),
				"range_outcome": string(rangeResult.Outcome),
			},
		})
		if err != nil {
			return err
		}

		result = &CommitResult{
			Mode:         WriteInsert,
			Trip:         committed,
			Severity:     entry.Severity,
			RangeOutcome: rangeResult.Outcome,
			Findings:     findings,
			Segments:     segments,
			AuditEntries: []model.AuditTrailEntry{*entry},
		}
		return nil
	})
	if err != nil {
		return nil, storageError("insert trip", err)
	}
	return result, nil
}

func (s *TripService) update(ctx context.Context, principal model.Principal, existing, trip model.Trip) (*CommitResult, error) {
	rangeResult, err := s.rangeStage(ctx, s.store, trip)
	if err != nil {
		return nil, err
	}

	keys := append(tripLockKeys(existing), tripLockKeys(trip)...)
	var result *CommitResult
	err = s.store.WithLocks(ctx, keys, func(tx repository.Repositories) error {
		current, err := tx.GetTrip(ctx, existing.OrganizationID, existing.ID)
		if err != nil {
			return storageError("load trip", err)
		}
		if current.VehicleID != existing.VehicleID || !sameDriverRef(current.DriverID, existing.DriverID) {
			return fmt.Errorf("%w: trip %s was reassigned concurrently", ErrConflict, existing.ID)
		}

		findings := append(model.Findings{}, rangeResult.Findings...)
		staged, err := s.historyStages(ctx, tx, trip)
		if err != nil {
			return err
		}
		findings = append(findings, staged...)

		var carried []uuid.UUID
		if current.VehicleID != trip.VehicleID {
			oldSegments, err := tx.ListSegments(ctx, current.OrganizationID, current.VehicleID)
			if err != nil {
				return storageError("list segments", err)
			}
			if segmentMembers(oldSegments)[trip.ID] {
				carried = append(carried, trip.ID)
			}
		}

		if err := tx.UpdateTrip(ctx, &trip); err != nil {
			return storageError("update trip", err)
		}

		chainFindings, segments, err := s.rebuildWithin(ctx, tx, trip.OrganizationID, trip.VehicleID, string(WriteUpdate), carried...)
		if err != nil {
			return err
		}
		findings = append(findings, chainFindings...)
		if current.VehicleID != trip.VehicleID {
			moved, _, err := s.rebuildWithin(ctx, tx, current.OrganizationID, current.VehicleID, string(WriteUpdate))
			if err != nil {
				return err
			}
			findings = append(findings, moved...)
		}

		committed, err := tx.GetTrip(ctx, trip.OrganizationID, trip.ID)
		if err != nil {
			return storageError("reload trip", err)
		}

		entry, err := appendDecision(ctx, tx, decision{
			orgID:      trip.OrganizationID,
			actorID:    principal.UserID,
			operation:  model.AuditOpTripUpdate,
			category:   model.AuditCategoryValidation,
			entityType: model.EntityTypeTrip,
			entityID:   trip.ID.String(),
			outcome:    model.AuditDecisionAccepted,
			findings:   findings,
			payload: map[string]any{
				"before":        tripSnapshot(*current),
				"after":         tripSnapshot(*committed),
				"range_outcome": string(rangeResult.Outcome),
			},
		})
		if err != nil {
			return err
		}

		result = &CommitResult{
			Mode:         WriteUpdate,
			Trip:         committed,
			Severity:     entry.Severity,
			RangeOutcome: rangeResult.Outcome,
			Findings:     findings,
			Segments:     segments,
			AuditEntries: []model.AuditTrailEntry{*entry},
		}
		return nil
	})
	if err != nil {
		return nil, storageError("update trip", err)
	}
	return result, nil
}

// delete soft-deletes by default. A hard delete of a refueling trip that anchors other trips'
// efficiency is refused, or downgraded to a soft delete when configured to.
func (s *TripService) delete(ctx context.Context, principal model.Principal, trip model.Trip, opts WriteOptions) (*CommitResult, error) {
	var result *CommitResult
	err := s.store.WithLocks(ctx, tripLockKeys(trip), func(tx repository.Repositories) error {
		current, err := tx.GetTrip(ctx, trip.OrganizationID, trip.ID)
		if err != nil {
			return storageError("load trip", err)
		}
		history, err := tx.ListVehicleTrips(ctx, current.OrganizationID, current.VehicleID)
		if err != nil {
			return storageError("list vehicle trips", err)
		}

		var (
			findings model.Findings
			tags     []string
			hard     = opts.HardDelete
		)
		if hard {
			if dependents := Dependents(*current, history); len(dependents) > 0 {
				depErr := &DependentDataError{TripID: current.ID, DependentTripIDs: dependents}
				if !s.cfg.ConvertBlockedHardDelete {
					return depErr
				}
				hard = false
				tags = append(tags, CodeConvertedSoft)
				findings = append(findings, model.Finding{
					Stage:    StageDelete,
					Code:     CodeConvertedSoft,
					Severity: model.SeverityWarning,
					Message:  "Hard delete converted to soft delete: " + depErr.Error(),
				})
			}
		}

		if hard {
			if err := tx.PurgeTrip(ctx, current.OrganizationID, current.ID); err != nil {
				return storageError("purge trip", err)
			}
			findings = append(findings, model.Finding{
				Stage: StageDelete, Code: CodeHardDeleted, Severity: model.SeverityInfo, Message: "Trip permanently removed",
			})
		} else {
			if err := tx.SoftDeleteTrip(ctx, current.OrganizationID, current.ID, s.now().UTC()); err != nil {
				return storageError("soft delete trip", err)
			}
			findings = append(findings, model.Finding{
				Stage: StageDelete, Code: CodeSoftDeleted, Severity: model.SeverityInfo, Message: "Trip marked as deleted",
			})
		}

		chainFindings, segments, err := s.rebuildWithin(ctx, tx, current.OrganizationID, current.VehicleID, string(WriteDelete))
		if err != nil {
			return err
		}
		findings = append(findings, chainFindings...)

		entry, err := appendDecision(ctx, tx, decision{
			orgID:      current.OrganizationID,
			actorID:    principal.UserID,
			operation:  model.AuditOpTripDelete,
			category:   model.AuditCategoryValidation,
			entityType: model.EntityTypeTrip,
			entityID:   current.ID.String(),
			outcome:    model.AuditDecisionAccepted,
			findings:   findings,
			reason:     strings.TrimSpace(opts.Reason),
			tags:       tags,
			payload: map[string]any{
				"before": tripSnapshot(*current),
				"hard":   hard,
			},
		})
		if err != nil {
			return err
		}

		deleted := *current
		if !hard {
			deleted.DeletedAt = gorm.DeletedAt{Time: s.now().UTC(), Valid: true}
		}
		result = &CommitResult{
			Mode:         WriteDelete,
			Trip:         &deleted,
			Severity:     entry.Severity,
			Findings:     findings,
			Segments:     segments,
			AuditEntries: []model.AuditTrailEntry{*entry},
		}
		return nil
	})
	if err != nil {
		return nil, storageError("delete trip", err)
	}
	return result, nil
}

// rangeStage runs the pure validator and turns a rejection into a CorrectnessViolation.
func (s *TripService) rangeStage(ctx context.Context, repos repository.Repositories, trip model.Trip) (RangeResult, error) {
	baseline, err := repos.GetBaseline(ctx, trip.OrganizationID, trip.VehicleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return RangeResult{}, storageError("load baseline", err)
	}
	result := s.ranges.Validate(trip, baseline)
	if result.Outcome == RangeRejection {
		return result, &CorrectnessViolation{
			TripID:   trip.ID,
			Stage:    StageRange,
			Findings: result.Findings.BySeverity(model.SeverityError),
		}
	}
	return result, nil
}

// historyStages runs continuity then overlap against the locked snapshot.
func (s *TripService) historyStages(ctx context.Context, repos repository.Repositories, trip model.Trip) (model.Findings, error) {
	vehicleTrips, err := repos.ListVehicleTrips(ctx, trip.OrganizationID, trip.VehicleID)
	if err != nil {
		return nil, storageError("list vehicle trips", err)
	}
	continuity, err := s.odometer.Check(trip, vehicleTrips)
	if err != nil {
		return nil, err
	}

	var driverTrips []model.Trip
	if trip.DriverID != nil {
		window := trip.Window()
		driverTrips, err = repos.ListDriverTrips(ctx, trip.OrganizationID, *trip.DriverID, &window)
		if err != nil {
			return nil, storageError("list driver trips", err)
		}
	}
	overlap, err := s.overlaps.Check(trip, vehicleTrips, driverTrips)
	if err != nil {
		return nil, err
	}
	return append(continuity, overlap...), nil
}

// rebuildWithin recomputes a vehicle's chain inside the caller's unit of work, writes the segment
// cache and per-trip efficiencies, and returns a warning for every break the rebuild introduced.
// Live trips that belonged to a previous segment (or are listed in carried, for trips moved in
// from another vehicle's chain) and belong to none now have their chain-derived kmpl cleared.
func (s *TripService) rebuildWithin(ctx context.Context, tx repository.Repositories, orgID, vehicleID uuid.UUID, trigger string, carried ...uuid.UUID) (model.Findings, []model.MileageSegment, error) {
	trips, err := tx.ListVehicleTripsWithDeleted(ctx, orgID, vehicleID)
	if err != nil {
		return nil, nil, storageError("list vehicle trips", err)
	}
	previous, err := tx.ListSegments(ctx, orgID, vehicleID)
	if err != nil {
		return nil, nil, storageError("list segments", err)
	}

	segments := s.chain.BuildSegments(orgID, vehicleID, trips, s.now().UTC())
	if err := tx.ReplaceSegments(ctx, orgID, vehicleID, segments); err != nil {
		return nil, nil, storageError("replace segments", err)
	}

	efficiencies := TripEfficiencies(segments)
	members := segmentMembers(segments)
	derived := segmentMembers(previous)
	for _, id := range carried {
		derived[id] = true
	}
	for _, t := range trips {
		if t.IsDeleted() || !(members[t.ID] || derived[t.ID]) {
			continue
		}
		var want *float64
		if kmpl, ok := efficiencies[t.ID]; ok {
			want = &kmpl
		}
		if sameFloatRef(t.FuelEfficiencyKmpl, want) {
			continue
		}
		if err := tx.UpdateTripEfficiency(ctx, orgID, t.ID, want); err != nil {
			return nil, nil, storageError("update trip efficiency", err)
		}
	}

	known := make(map[uuid.UUID]string, len(previous))
	for _, seg := range previous {
		known[seg.ID] = seg.BreakReason
	}
	var findings model.Findings
	breaks := 0
	for _, seg := range segments {
		if seg.Valid {
			continue
		}
		breaks++
		if reason, ok := known[seg.ID]; ok && reason == seg.BreakReason {
			continue
		}
		related := seg.EndTripID
		findings = append(findings, model.Finding{
			Stage:         StageChain,
			Code:          CodeChainBreak,
			Severity:      model.SeverityWarning,
			Message:       chainBreakDetail(model.ChainBreakReason(seg.BreakReason), seg),
			Value:         seg.Kmpl,
			RelatedTripID: &related,
		})
	}
	metrics.ObserveChainRebuild(trigger, breaks)
	return findings, segments, nil
}

func segmentMembers(segments []model.MileageSegment) map[uuid.UUID]bool {
	members := make(map[uuid.UUID]bool)
	for _, seg := range segments {
		for _, raw := range seg.TripIDs {
			if id, err := uuid.Parse(raw); err == nil {
				members[id] = true
			}
		}
	}
	return members
}

func (s *TripService) recordRejection(ctx context.Context, principal model.Principal, mode WriteMode, subject model.Trip, cause error, started time.Time) {
	stage, findings := rejectionFindings(cause)
	metrics.ObserveRejection(stage)
	metrics.ObserveDecision(string(mode.operation()), string(model.AuditDecisionRejected), string(model.SeverityError), started)

	orgID := subject.OrganizationID
	if orgID == uuid.Nil {
		orgID = principal.OrgID
	}
	payload := map[string]any{"stage": stage}
	if subject.ID != uuid.Nil {
		payload["candidate"] = tripSnapshot(subject)
	}
	var conflict *ConflictError
	if errors.As(cause, &conflict) {
		payload["conflicts"] = conflict.Conflicts
	}

	_, err := appendDecision(ctx, s.store, decision{
		orgID:      orgID,
		actorID:    principal.UserID,
		operation:  mode.operation(),
		category:   model.AuditCategoryValidation,
		entityType: model.EntityTypeTrip,
		entityID:   subject.ID.String(),
		outcome:    model.AuditDecisionRejected,
		findings:   findings,
		severity:   model.SeverityError,
		reason:     cause.Error(),
		payload:    payload,
	})
	if err != nil {
		s.log.Error().Err(err).Str("trip_id", subject.ID.String()).Msg("failed to record rejected trip write")
	}

	s.log.Warn().
		Str("mode", string(mode)).
		Str("stage", stage).
		Str("trip_id", subject.ID.String()).
		Str("vehicle_id", subject.VehicleID.String()).
		Str("organization_id", orgID.String()).
		Str("reason", cause.Error()).
		Msg("trip write rejected")
}

func rejectionFindings(err error) (string, model.Findings) {
	var (
		correctness *CorrectnessViolation
		conflict    *ConflictError
		dependent   *DependentDataError
	)
	switch {
	case errors.As(err, &correctness):
		return correctness.Stage, correctness.Findings
	case errors.As(err, &conflict):
		findings := make(model.Findings, 0, len(conflict.Conflicts))
		for _, c := range conflict.Conflicts {
			code := CodeVehicleConflict
			if c.Kind == model.ConflictKindDriver {
				code = CodeDriverConflict
			}
			related := c.Trip.ID
			findings = append(findings, model.Finding{
				Stage:         StageOverlap,
				Code:          code,
				Severity:      model.SeverityError,
				Message:       conflictMessage(c),
				Value:         floatPtr(c.OverlapMinutes),
				RelatedTripID: &related,
			})
		}
		return StageOverlap, findings
	case errors.As(err, &dependent):
		return StageDelete, model.Findings{{
			Stage:    StageDelete,
			Code:     CodeDependents,
			Severity: model.SeverityError,
			Message:  dependent.Error(),
			Value:    floatPtr(float64(len(dependent.DependentTripIDs))),
		}}
	}
	return StagePersist, model.Findings{{
		Stage:    StagePersist,
		Code:     CodeWriteConflict,
		Severity: model.SeverityError,
		Message:  err.Error(),
	}}
}

func (s *TripService) prepareInsert(ctx context.Context, principal model.Principal, candidate model.Trip) (model.Trip, error) {
	trip := candidate
	trip.OrganizationID = principal.OrgID
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	actor := principal.UserID
	trip.CreatedBy = &actor
	trip.CreatedAt = time.Time{}
	trip.DeletedAt = gorm.DeletedAt{}
	trip.TripSerialNumber = strings.TrimSpace(trip.TripSerialNumber)
	if trip.TripSerialNumber == "" && s.serials != nil {
		trip.TripSerialNumber = s.serials.Next()
	}
	if err := normalizeShape(&trip); err != nil {
		return trip, err
	}
	if !canTouch(principal, trip) {
		return trip, ErrPermissionDenied
	}
	if err := s.resolveReferences(ctx, trip, nil); err != nil {
		return trip, err
	}
	return trip, nil
}

func (s *TripService) prepareUpdate(ctx context.Context, principal model.Principal, candidate model.Trip) (*model.Trip, model.Trip, error) {
	if candidate.ID == uuid.Nil {
		return nil, candidate, invalidInput("trip id is required")
	}
	existing, err := s.store.GetTrip(ctx, principal.OrgID, candidate.ID)
	if err != nil {
		return nil, candidate, storageError("load trip", err)
	}
	if !canTouch(principal, *existing) {
		return nil, *existing, ErrPermissionDenied
	}

	trip := candidate
	trip.OrganizationID = existing.OrganizationID
	trip.CreatedBy = existing.CreatedBy
	trip.CreatedAt = existing.CreatedAt
	trip.DeletedAt = gorm.DeletedAt{}
	trip.TripSerialNumber = strings.TrimSpace(trip.TripSerialNumber)
	if trip.TripSerialNumber == "" {
		trip.TripSerialNumber = existing.TripSerialNumber
	}
	if err := normalizeShape(&trip); err != nil {
		return nil, trip, err
	}
	if !canTouch(principal, trip) {
		return nil, trip, ErrPermissionDenied
	}
	if err := s.resolveReferences(ctx, trip, existing); err != nil {
		return nil, trip, err
	}
	return existing, trip, nil
}

// resolveReferences requires the trip's vehicle and driver to be live members of its organization.
// On update only a changed reference is resolved, so trips of a decommissioned vehicle stay editable.
func (s *TripService) resolveReferences(ctx context.Context, trip model.Trip, existing *model.Trip) error {
	if existing == nil || existing.VehicleID != trip.VehicleID {
		if _, err := s.store.GetVehicle(ctx, trip.OrganizationID, trip.VehicleID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidInput("vehicle %s is not registered in this organization", trip.VehicleID)
			}
			return storageError("load vehicle", err)
		}
	}
	if trip.DriverID != nil && (existing == nil || !sameDriverRef(existing.DriverID, trip.DriverID)) {
		if _, err := s.store.GetDriver(ctx, trip.OrganizationID, *trip.DriverID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalidInput("driver %s is not registered in this organization", *trip.DriverID)
			}
			return storageError("load driver", err)
		}
	}
	return nil
}

func (s *TripService) loadForDelete(ctx context.Context, principal model.Principal, tripID uuid.UUID) (model.Trip, error) {
	if tripID == uuid.Nil {
		return model.Trip{}, invalidInput("trip id is required")
	}
	existing, err := s.store.GetTrip(ctx, principal.OrgID, tripID)
	if err != nil {
		return model.Trip{ID: tripID}, storageError("load trip", err)
	}
	if !canTouch(principal, *existing) || principal.IsDriver() {
		return *existing, ErrPermissionDenied
	}
	return *existing, nil
}

// normalizeShape checks the fields every stage relies on; value plausibility is the range stage's job.
func normalizeShape(trip *model.Trip) error {
	if trip.VehicleID == uuid.Nil {
		return invalidInput("vehicle_id is required")
	}
	if trip.TripStartDate.IsZero() || trip.TripEndDate.IsZero() {
		return invalidInput("trip_start_date and trip_end_date are required")
	}
	if trip.TripSerialNumber == "" {
		return invalidInput("trip_serial_number is required")
	}
	if trip.TripType == "" {
		trip.TripType = model.TripTypeNormal
	}
	if !trip.TripType.Valid() {
		return invalidInput("unknown trip_type %q", trip.TripType)
	}
	if trip.DriverID != nil && *trip.DriverID == uuid.Nil {
		trip.DriverID = nil
	}
	trip.TripStartDate = trip.TripStartDate.UTC()
	trip.TripEndDate = trip.TripEndDate.UTC()
	return nil
}

// canTouch lets drivers write only trips assigned to themselves.
func canTouch(principal model.Principal, trip model.Trip) bool {
	if !principal.CanWriteTrips() {
		return false
	}
	if principal.IsDriver() {
		return principal.DriverID != nil && trip.HasDriver(*principal.DriverID)
	}
	return true
}

func tripLockKeys(trip model.Trip) []string {
	keys := []string{repository.VehicleLockKey(trip.OrganizationID, trip.VehicleID)}
	if trip.DriverID != nil {
		keys = append(keys, repository.DriverLockKey(trip.OrganizationID, *trip.DriverID))
	}
	return keys
}

func sameDriverRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameFloatRef(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
