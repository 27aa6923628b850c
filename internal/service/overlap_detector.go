package service

import (
	"sort"

	"github.com/google/uuid"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

type OverlapDetector struct {
	cfg config.IntegrityConfig
}

func NewOverlapDetector(cfg config.IntegrityConfig) *OverlapDetector {
	return &OverlapDetector{cfg: cfg}
}

// Conflicts returns every live trip in others that shares the window of candidate, excluding
// excludeID and anything outside the candidate's organization. Results are ordered by start date.
func (d *OverlapDetector) Conflicts(kind model.ConflictKind, orgID uuid.UUID, window model.TimeWindow, excludeID uuid.UUID, others []model.Trip) []model.Conflict {
	conflicts := make([]model.Conflict, 0)
	for _, t := range others {
		if t.ID == excludeID || t.IsDeleted() || t.OrganizationID != orgID {
			continue
		}
		existing := t.Window()
		if !window.Overlaps(existing) {
			continue
		}
		conflicts = append(conflicts, model.Conflict{
			Kind:           kind,
			Trip:           model.BriefOf(t),
			OverlapType:    model.ClassifyOverlap(window, existing),
			OverlapMinutes: window.Intersection(existing).Minutes(),
		})
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i].Trip, conflicts[j].Trip
		if !a.Window.Start.Equal(b.Window.Start) {
			return a.Window.Start.Before(b.Window.Start)
		}
		return a.ID.String() < b.ID.String()
	})
	return conflicts
}

// Check rejects candidate when it overlaps any vehicle or driver trip. Vehicle conflicts are listed first.
func (d *OverlapDetector) Check(candidate model.Trip, vehicleTrips, driverTrips []model.Trip) (model.Findings, error) {
	window := candidate.Window()
	conflicts := d.Conflicts(model.ConflictKindVehicle, candidate.OrganizationID, window, candidate.ID, vehicleTrips)
	if candidate.DriverID != nil {
		sameDriver := make([]model.Trip, 0, len(driverTrips))
		for _, t := range driverTrips {
			if t.SameDriver(candidate) {
				sameDriver = append(sameDriver, t)
			}
		}
		conflicts = append(conflicts, d.Conflicts(model.ConflictKindDriver, candidate.OrganizationID, window, candidate.ID, sameDriver)...)
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{TripID: candidate.ID, Conflicts: conflicts}
	}
	return model.Findings{{
		Stage:    StageOverlap,
		Code:     CodeNoConflicts,
		Severity: model.SeverityInfo,
		Message:  "No conflicts found",
	}}, nil
}

// Pairs returns every overlapping pair among trips that share the same vehicle (or driver, for
// ConflictKindDriver). Trips are sorted by start so each trip is compared only with those starting
// before it ends.
func (d *OverlapDetector) Pairs(kind model.ConflictKind, trips []model.Trip) []model.OverlapRecord {
	groups := make(map[uuid.UUID][]model.Trip)
	for _, t := range liveTrips(trips) {
		switch kind {
		case model.ConflictKindVehicle:
			groups[t.VehicleID] = append(groups[t.VehicleID], t)
		case model.ConflictKindDriver:
			if t.DriverID != nil {
				groups[*t.DriverID] = append(groups[*t.DriverID], t)
			}
		}
	}

	keys := make([]uuid.UUID, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	records := make([]model.OverlapRecord, 0)
	for _, k := range keys {
		group := groups[k]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group) && group[j].TripStartDate.Before(group[i].TripEndDate); j++ {
				if group[i].OrganizationID != group[j].OrganizationID {
					continue
				}
				records = append(records, d.record(kind, group[i], group[j]))
			}
		}
	}
	return records
}

func (d *OverlapDetector) record(kind model.ConflictKind, first, second model.Trip) model.OverlapRecord {
	overlapType := model.ClassifyOverlap(second.Window(), first.Window())
	minutes := first.Window().Intersection(second.Window()).Minutes()
	return model.OverlapRecord{
		Kind:           kind,
		First:          model.BriefOf(first),
		Second:         model.BriefOf(second),
		OverlapType:    overlapType,
		OverlapMinutes: minutes,
		Severity:       d.severity(overlapType, minutes),
		Remediation:    overlapRemediation(overlapType),
	}
}

func (d *OverlapDetector) severity(t model.OverlapType, minutes float64) model.OverlapSeverity {
	switch {
	case t.IsContainment():
		return model.OverlapSeverityCritical
	case minutes >= d.cfg.OverlapHighMinutes:
		return model.OverlapSeverityHigh
	default:
		return model.OverlapSeverityMedium
	}
}
