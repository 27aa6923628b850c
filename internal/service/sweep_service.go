package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

// SweepService runs the read-only data-quality scans. None of them take locks: a sweep tolerates
// trips written while it runs.
type SweepService struct {
	repos    repository.Repositories
	ranges   *RangeValidator
	odometer *OdometerValidator
	overlaps *OverlapDetector
	chain    *MileageChain
}

func NewSweepService(repos repository.Repositories, cfg config.IntegrityConfig) *SweepService {
	return &SweepService{
		repos:    repos,
		ranges:   NewRangeValidator(cfg),
		odometer: NewOdometerValidator(cfg),
		overlaps: NewOverlapDetector(cfg),
		chain:    NewMileageChain(cfg),
	}
}

type SweepQuery struct {
	VehicleID *uuid.UUID
	DriverID  *uuid.UUID
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

func (q SweepQuery) scope(orgID uuid.UUID) model.Scope {
	scope := model.OrganizationScope(orgID)
	if q.VehicleID != nil {
		scope = scope.ForVehicle(*q.VehicleID)
	}
	if q.DriverID != nil {
		scope = scope.ForDriver(*q.DriverID)
	}
	return scope
}

func (s *SweepService) load(ctx context.Context, principal model.Principal, q SweepQuery) ([]model.Trip, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateTo.Before(*q.DateFrom) {
		return nil, invalidInput("date_to is before date_from")
	}
	trips, err := s.repos.ListTrips(ctx, repository.TripFilter{
		Scope:    q.scope(principal.OrgID),
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	})
	if err != nil {
		return nil, storageError("list trips", err)
	}
	return trips, nil
}

// FindOverlaps returns all overlapping pairs in scope. A vehicle filter limits the scan to vehicle
// pairs and a driver filter to driver pairs; without either, both are reported.
func (s *SweepService) FindOverlaps(ctx context.Context, principal model.Principal, q SweepQuery) ([]model.OverlapRecord, error) {
	trips, err := s.load(ctx, principal, q)
	if err != nil {
		return nil, err
	}

	records := make([]model.OverlapRecord, 0)
	if q.DriverID == nil {
		records = append(records, s.overlaps.Pairs(model.ConflictKindVehicle, trips)...)
	}
	if q.VehicleID == nil {
		records = append(records, s.overlaps.Pairs(model.ConflictKindDriver, trips)...)
	}
	return paginate(records, q.Limit, q.Offset), nil
}

func (s *SweepService) FindOdometerGaps(ctx context.Context, principal model.Principal, vehicleID uuid.UUID) ([]model.GapRecord, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	trips, err := s.repos.ListVehicleTrips(ctx, principal.OrgID, vehicleID)
	if err != nil {
		return nil, storageError("list vehicle trips", err)
	}
	return s.odometer.Gaps(trips), nil
}

// FindAnomalies buckets every warning and rejection the range validator and the gap scan produce
// for trips in scope. Buckets are ordered most severe first, then by count.
func (s *SweepService) FindAnomalies(ctx context.Context, principal model.Principal, q SweepQuery) ([]model.AnomalyBucket, error) {
	trips, err := s.load(ctx, principal, q)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]*model.AnomalyBucket)
	add := func(code string, severity model.Severity, tripID uuid.UUID) {
		b, ok := buckets[code]
		if !ok {
			b = &model.AnomalyBucket{Code: code, Severity: severity, Recommendation: anomalyRecommendation(code)}
			buckets[code] = b
		}
		b.Severity = model.Worst(b.Severity, severity)
		for _, id := range b.TripIDs {
			if id == tripID {
				return
			}
		}
		b.TripIDs = append(b.TripIDs, tripID)
		b.Count = len(b.TripIDs)
	}

	baselines := make(map[uuid.UUID]*model.FuelEfficiencyBaseline)
	byVehicle := make(map[uuid.UUID][]model.Trip)
	for _, t := range trips {
		baseline, seen := baselines[t.VehicleID]
		if !seen {
			baseline, err = s.repos.GetBaseline(ctx, t.OrganizationID, t.VehicleID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, storageError("load baseline", err)
			}
			baselines[t.VehicleID] = baseline
		}
		for _, f := range s.ranges.Validate(t, baseline).Findings {
			if f.Severity.AtLeast(model.SeverityWarning) {
				add(f.Code, f.Severity, t.ID)
			}
		}
		byVehicle[t.VehicleID] = append(byVehicle[t.VehicleID], t)
	}

	for _, vehicleTrips := range byVehicle {
		for _, gap := range s.odometer.Gaps(vehicleTrips) {
			code := CodeLargeGap
			if gap.Kind == model.GapNegative {
				code = CodeNegativeGap
			}
			add(code, gap.Severity, gap.Predecessor.ID)
			add(code, gap.Severity, gap.Successor.ID)
		}
	}

	out := make([]model.AnomalyBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity != b.Severity {
			return a.Severity.AtLeast(b.Severity)
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Code < b.Code
	})
	return paginate(out, q.Limit, q.Offset), nil
}

// DetectChainBreaks rebuilds the chain in memory from the trip log, deleted trips included, so the
// report never depends on a stale segment cache.
func (s *SweepService) DetectChainBreaks(ctx context.Context, principal model.Principal, vehicleID uuid.UUID) ([]model.ChainBreakRecord, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	trips, err := s.repos.ListVehicleTripsWithDeleted(ctx, principal.OrgID, vehicleID)
	if err != nil {
		return nil, storageError("list vehicle trips", err)
	}
	segments := s.chain.BuildSegments(principal.OrgID, vehicleID, trips, time.Time{})
	return s.chain.Breaks(segments, trips), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if n := repository.EffectiveLimit(limit); len(items) > n {
		items = items[:n]
	}
	return items
}
