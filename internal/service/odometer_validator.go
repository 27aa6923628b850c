package service

import (
	"sort"

	"github.com/google/uuid"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

type OdometerValidator struct {
	cfg config.IntegrityConfig
}

func NewOdometerValidator(cfg config.IntegrityConfig) *OdometerValidator {
	return &OdometerValidator{cfg: cfg}
}

// Neighbors returns the live trips of history immediately before and after candidate by start date.
// The candidate itself, matched by id, is skipped.
func Neighbors(candidate model.Trip, history []model.Trip) (pred, succ *model.Trip) {
	for i := range history {
		t := history[i]
		if t.ID == candidate.ID || t.IsDeleted() || t.VehicleID != candidate.VehicleID || t.OrganizationID != candidate.OrganizationID {
			continue
		}
		switch {
		case t.TripStartDate.Before(candidate.TripStartDate):
			if pred == nil || t.TripStartDate.After(pred.TripStartDate) {
				pred = &history[i]
			}
		case t.TripStartDate.After(candidate.TripStartDate):
			if succ == nil || t.TripStartDate.Before(succ.TripStartDate) {
				succ = &history[i]
			}
		}
	}
	return pred, succ
}

// Check compares candidate with its chronological neighbors. A negative gap on either side is a
// correctness violation; a gap above the large-gap threshold is returned as a warning.
func (v *OdometerValidator) Check(candidate model.Trip, history []model.Trip) (model.Findings, error) {
	pred, succ := Neighbors(candidate, history)

	var (
		findings   model.Findings
		violations model.Findings
	)
	if pred != nil {
		gap := candidate.StartKm - pred.EndKm
		switch {
		case gap < 0:
			violations = append(violations, continuityFinding(CodeNegativeGap, model.SeverityError, "start_km",
				negativeGapMessage(*pred, candidate.StartKm), gap, 0, pred.ID))
		case gap > v.cfg.LargeGapKm:
			findings = append(findings, continuityFinding(CodeLargeGap, model.SeverityWarning, "start_km",
				largeGapMessage(gap, *pred, true), gap, v.cfg.LargeGapKm, pred.ID))
		}
	}
	if succ != nil {
		gap := succ.StartKm - candidate.EndKm
		switch {
		case gap < 0:
			violations = append(violations, continuityFinding(CodeSuccessorOverrun, model.SeverityError, "end_km",
				successorOverrunMessage(*succ, candidate.EndKm), gap, 0, succ.ID))
		case gap > v.cfg.LargeGapKm:
			findings = append(findings, continuityFinding(CodeLargeGap, model.SeverityWarning, "end_km",
				largeGapMessage(gap, *succ, false), gap, v.cfg.LargeGapKm, succ.ID))
		}
	}

	if len(violations) > 0 {
		return nil, &CorrectnessViolation{TripID: candidate.ID, Stage: StageContinuity, Findings: violations}
	}
	if len(findings) == 0 {
		findings = append(findings, model.Finding{
			Stage:    StageContinuity,
			Code:     CodeContinuityOK,
			Severity: model.SeverityInfo,
			Message:  "Odometer continuity verified",
		})
	}
	return findings, nil
}

// Gaps scans a vehicle's full live history for negative and large gaps between adjacent trips.
func (v *OdometerValidator) Gaps(trips []model.Trip) []model.GapRecord {
	live := liveTrips(trips)
	records := make([]model.GapRecord, 0)
	for i := 1; i < len(live); i++ {
		prev, next := live[i-1], live[i]
		gap := next.StartKm - prev.EndKm
		record := model.GapRecord{
			VehicleID:   next.VehicleID,
			Predecessor: model.BriefOf(prev),
			Successor:   model.BriefOf(next),
			GapKm:       gap,
		}
		switch {
		case gap < 0:
			record.Kind = model.GapNegative
			record.Severity = model.SeverityError
		case gap > v.cfg.LargeGapKm:
			record.Kind = model.GapLarge
			record.Severity = model.SeverityWarning
		default:
			continue
		}
		records = append(records, record)
	}
	return records
}

func continuityFinding(code string, severity model.Severity, field, msg string, value, threshold float64, related uuid.UUID) model.Finding {
	return model.Finding{
		Stage:         StageContinuity,
		Code:          code,
		Severity:      severity,
		Message:       msg,
		Field:         field,
		Value:         floatPtr(value),
		Threshold:     floatPtr(threshold),
		RelatedTripID: &related,
	}
}

// liveTrips drops soft-deleted trips and returns the rest ordered by start date.
func liveTrips(trips []model.Trip) []model.Trip {
	out := make([]model.Trip, 0, len(trips))
	for _, t := range trips {
		if !t.IsDeleted() {
			out = append(out, t)
		}
	}
	sort.Sort(model.TripsByStart(out))
	return out
}
