package service

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

// segmentNamespace seeds the deterministic segment ids.
var segmentNamespace = uuid.MustParse("6f1c8a52-4a57-4c44-9d0e-3c1f8b1f2a10")

type MileageChain struct {
	cfg config.IntegrityConfig
}

func NewMileageChain(cfg config.IntegrityConfig) *MileageChain {
	return &MileageChain{cfg: cfg}
}

// BuildSegments derives the tank-to-tank chain of one vehicle from its trip log. trips may include
// soft-deleted rows; they never contribute distance or fuel but are used to explain breaks.
// The result depends only on the trip log: the same input always yields the same segments.
func (m *MileageChain) BuildSegments(orgID, vehicleID uuid.UUID, trips []model.Trip, computedAt time.Time) []model.MileageSegment {
	all := make([]model.Trip, 0, len(trips))
	for _, t := range trips {
		if t.OrganizationID == orgID && t.VehicleID == vehicleID {
			all = append(all, t)
		}
	}
	live := liveTrips(all)
	deleted := deletedTrips(all)

	refuels := make([]int, 0)
	for i, t := range live {
		if t.RefuelingDone {
			refuels = append(refuels, i)
		}
	}

	segments := make([]model.MileageSegment, 0, len(refuels))
	for n := 1; n < len(refuels); n++ {
		from, to := refuels[n-1], refuels[n]
		earlier, later := live[from], live[to]

		members := live[from+1 : to+1]
		fuel := 0.0
		ids := make(pq.StringArray, 0, len(members))
		for _, t := range members {
			fuel += t.FuelQuantity
			ids = append(ids, t.ID.String())
		}

		seg := model.MileageSegment{
			ID:              segmentID(vehicleID, earlier.ID, later.ID),
			OrganizationID:  orgID,
			VehicleID:       vehicleID,
			Sequence:        n,
			StartTripID:     earlier.ID,
			EndTripID:       later.ID,
			StartAt:         earlier.TripEndDate,
			EndAt:           later.TripEndDate,
			StartOdometerKm: earlier.EndKm,
			EndOdometerKm:   later.EndKm,
			DistanceKm:      round1(later.EndKm - earlier.EndKm),
			FuelLiters:      round2(fuel),
			TripIDs:         ids,
			Valid:           true,
			ComputedAt:      computedAt,
		}
		if seg.DistanceKm > 0 && seg.FuelLiters > 0 {
			kmpl := round2(seg.DistanceKm / seg.FuelLiters)
			seg.Kmpl = &kmpl
		}

		if reason := m.breakReason(seg, live[from:to+1], deletedBetween(deleted, earlier, later)); reason != "" {
			seg.Valid = false
			seg.BreakReason = string(reason)
		}
		segments = append(segments, seg)
	}
	return segments
}

func (m *MileageChain) breakReason(seg model.MileageSegment, path []model.Trip, deleted []model.Trip) model.ChainBreakReason {
	switch {
	case seg.DistanceKm <= 0:
		return model.ChainBreakNonIncreasingOdometer
	case seg.FuelLiters <= 0:
		return model.ChainBreakNoFuel
	}
	for i := 1; i < len(path); i++ {
		gap := path[i].StartKm - path[i-1].EndKm
		if gap < 0 || gap > m.cfg.LargeGapKm {
			if len(deleted) > 0 {
				return model.ChainBreakDeletedTrips
			}
			return model.ChainBreakOdometerDiscontinuity
		}
	}
	if seg.Kmpl != nil && (*seg.Kmpl < m.cfg.MinEfficiencyKmpl || *seg.Kmpl > m.cfg.MaxEfficiencyKmpl) {
		return model.ChainBreakImplausibleEfficiency
	}
	return ""
}

// TripEfficiencies maps every trip that belongs to a valid segment to that segment's kmpl.
func TripEfficiencies(segments []model.MileageSegment) map[uuid.UUID]float64 {
	out := make(map[uuid.UUID]float64)
	for _, seg := range segments {
		if !seg.Valid || seg.Kmpl == nil {
			continue
		}
		for _, raw := range seg.TripIDs {
			if id, err := uuid.Parse(raw); err == nil {
				out[id] = *seg.Kmpl
			}
		}
	}
	return out
}

// Breaks reports every invalid segment as a warning-level chain break.
func (m *MileageChain) Breaks(segments []model.MileageSegment, trips []model.Trip) []model.ChainBreakRecord {
	byID := make(map[uuid.UUID]model.Trip, len(trips))
	for _, t := range trips {
		byID[t.ID] = t
	}
	deleted := deletedTrips(trips)

	records := make([]model.ChainBreakRecord, 0)
	for _, seg := range segments {
		if seg.Valid {
			continue
		}
		reason := model.ChainBreakReason(seg.BreakReason)
		start, end := byID[seg.StartTripID], byID[seg.EndTripID]
		record := model.ChainBreakRecord{
			VehicleID:   seg.VehicleID,
			StartTripID: seg.StartTripID,
			EndTripID:   seg.EndTripID,
			StartSerial: start.TripSerialNumber,
			EndSerial:   end.TripSerialNumber,
			Reason:      reason,
			Severity:    model.SeverityWarning,
			Detail:      chainBreakDetail(reason, seg),
		}
		if reason == model.ChainBreakDeletedTrips {
			for _, t := range deletedBetween(deleted, start, end) {
				record.DeletedTripIDs = append(record.DeletedTripIDs, t.ID)
			}
		}
		records = append(records, record)
	}
	return records
}

// Dependents returns the live non-refueling trips whose efficiency is anchored on refuel: those
// after the previous refueling and before the next one. Trips before the vehicle's first refueling
// depend on nothing.
func Dependents(refuel model.Trip, trips []model.Trip) []uuid.UUID {
	if !refuel.RefuelingDone {
		return nil
	}
	live := liveTrips(trips)
	idx := -1
	for i, t := range live {
		if t.ID == refuel.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	dependents := make([]uuid.UUID, 0)
	hasPrev := false
	for i := idx - 1; i >= 0; i-- {
		if live[i].RefuelingDone {
			hasPrev = true
			break
		}
	}
	if hasPrev {
		for i := idx - 1; i >= 0 && !live[i].RefuelingDone; i-- {
			dependents = append([]uuid.UUID{live[i].ID}, dependents...)
		}
	}
	for i := idx + 1; i < len(live) && !live[i].RefuelingDone; i++ {
		dependents = append(dependents, live[i].ID)
	}
	return dependents
}

// ProposedChange is a correction that PreviewCascadeImpact evaluates without committing.
type ProposedChange struct {
	StartKm       *float64 `json:"start_km"`
	EndKm         *float64 `json:"end_km"`
	FuelQuantity  *float64 `json:"fuel_quantity"`
	RefuelingDone *bool    `json:"refueling_done"`
}

func (c ProposedChange) Empty() bool {
	return c.StartKm == nil && c.EndKm == nil && c.FuelQuantity == nil && c.RefuelingDone == nil
}

func (c ProposedChange) Apply(t model.Trip) model.Trip {
	if c.StartKm != nil {
		t.StartKm = *c.StartKm
	}
	if c.EndKm != nil {
		t.EndKm = *c.EndKm
	}
	if c.FuelQuantity != nil {
		t.FuelQuantity = *c.FuelQuantity
	}
	if c.RefuelingDone != nil {
		t.RefuelingDone = *c.RefuelingDone
	}
	return t
}

// Diff lists the segments that differ between two builds of the same vehicle's chain.
func Diff(before, after []model.MileageSegment) []model.AffectedSegment {
	index := func(segs []model.MileageSegment) map[uuid.UUID]model.MileageSegment {
		out := make(map[uuid.UUID]model.MileageSegment, len(segs))
		for _, s := range segs {
			out[s.ID] = s
		}
		return out
	}
	beforeByID, afterByID := index(before), index(after)

	affected := make([]model.AffectedSegment, 0)
	for _, b := range before {
		a, ok := afterByID[b.ID]
		switch {
		case !ok:
			affected = append(affected, affectedSegment(&b, nil, model.SegmentRemoved))
		case !b.SameShape(a):
			affected = append(affected, affectedSegment(&b, &a, model.SegmentModified))
		}
	}
	for _, a := range after {
		if _, ok := beforeByID[a.ID]; !ok {
			affected = append(affected, affectedSegment(nil, &a, model.SegmentAdded))
		}
	}
	return affected
}

func affectedSegment(before, after *model.MileageSegment, change model.SegmentChange) model.AffectedSegment {
	ref := after
	if ref == nil {
		ref = before
	}
	out := model.AffectedSegment{
		StartTripID: ref.StartTripID,
		EndTripID:   ref.EndTripID,
		Change:      change,
	}
	ids := make(map[uuid.UUID]struct{})
	for _, seg := range []*model.MileageSegment{before, after} {
		if seg == nil {
			continue
		}
		for _, raw := range seg.TripIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			if _, seen := ids[id]; !seen {
				ids[id] = struct{}{}
				out.TripIDs = append(out.TripIDs, id)
			}
		}
	}
	if before != nil {
		out.BeforeDistance = floatPtr(before.DistanceKm)
		out.BeforeKmpl = before.Kmpl
		out.BeforeValid = before.Valid
	}
	if after != nil {
		out.AfterDistance = floatPtr(after.DistanceKm)
		out.AfterKmpl = after.Kmpl
		out.AfterValid = after.Valid
	}
	return out
}

func segmentID(vehicleID, startTripID, endTripID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(segmentNamespace, []byte(vehicleID.String()+"/"+startTripID.String()+"/"+endTripID.String()))
}

func deletedTrips(trips []model.Trip) []model.Trip {
	out := make([]model.Trip, 0)
	for _, t := range trips {
		if t.IsDeleted() {
			out = append(out, t)
		}
	}
	return out
}

// deletedBetween returns the deleted trips that started after earlier and no later than later.
func deletedBetween(deleted []model.Trip, earlier, later model.Trip) []model.Trip {
	out := make([]model.Trip, 0)
	for _, t := range deleted {
		if t.TripStartDate.After(earlier.TripStartDate) && !t.TripStartDate.After(later.TripStartDate) {
			out = append(out, t)
		}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
