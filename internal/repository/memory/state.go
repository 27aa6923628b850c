package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

type vehicleKey struct {
	org     uuid.UUID
	vehicle uuid.UUID
}

type state struct {
	vehicles  map[uuid.UUID]model.Vehicle
	drivers   map[uuid.UUID]model.Driver
	trips     map[uuid.UUID]model.Trip
	segments  map[vehicleKey][]model.MileageSegment
	baselines map[vehicleKey]model.FuelEfficiencyBaseline
	audit     []model.AuditTrailEntry
	now       func() time.Time
}

func newState() *state {
	return &state{
		vehicles:  make(map[uuid.UUID]model.Vehicle),
		drivers:   make(map[uuid.UUID]model.Driver),
		trips:     make(map[uuid.UUID]model.Trip),
		segments:  make(map[vehicleKey][]model.MileageSegment),
		baselines: make(map[vehicleKey]model.FuelEfficiencyBaseline),
		now:       time.Now,
	}
}

func (s *state) clone() *state {
	out := &state{
		vehicles:  make(map[uuid.UUID]model.Vehicle, len(s.vehicles)),
		drivers:   make(map[uuid.UUID]model.Driver, len(s.drivers)),
		trips:     make(map[uuid.UUID]model.Trip, len(s.trips)),
		segments:  make(map[vehicleKey][]model.MileageSegment, len(s.segments)),
		baselines: make(map[vehicleKey]model.FuelEfficiencyBaseline, len(s.baselines)),
		audit:     append([]model.AuditTrailEntry(nil), s.audit...),
		now:       s.now,
	}
	for id, v := range s.vehicles {
		out.vehicles[id] = v
	}
	for id, d := range s.drivers {
		out.drivers[id] = d
	}
	for id, trip := range s.trips {
		out.trips[id] = trip
	}
	for key, segs := range s.segments {
		out.segments[key] = append([]model.MileageSegment(nil), segs...)
	}
	for key, b := range s.baselines {
		out.baselines[key] = b
	}
	return out
}

func (s *state) getVehicle(orgID, vehicleID uuid.UUID) (*model.Vehicle, error) {
	v, ok := s.vehicles[vehicleID]
	if !ok || v.OrganizationID != orgID || v.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return &v, nil
}

func (s *state) getDriver(orgID, driverID uuid.UUID) (*model.Driver, error) {
	d, ok := s.drivers[driverID]
	if !ok || d.OrganizationID != orgID || d.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (s *state) getTrip(orgID, tripID uuid.UUID) (*model.Trip, error) {
	trip, ok := s.trips[tripID]
	if !ok || trip.OrganizationID != orgID || trip.IsDeleted() {
		return nil, gorm.ErrRecordNotFound
	}
	return &trip, nil
}

func (s *state) selectTrips(withDeleted bool, keep func(model.Trip) bool) []model.Trip {
	out := make([]model.Trip, 0)
	for _, trip := range s.trips {
		if !withDeleted && trip.IsDeleted() {
			continue
		}
		if keep(trip) {
			out = append(out, trip)
		}
	}
	sort.Sort(model.TripsByStart(out))
	return out
}

func (s *state) listTrips(filter repository.TripFilter) []model.Trip {
	trips := s.selectTrips(filter.IncludeDeleted, func(t model.Trip) bool {
		if !filter.Scope.Allows(t) {
			return false
		}
		if filter.DateFrom != nil && t.TripEndDate.Before(*filter.DateFrom) {
			return false
		}
		if filter.DateTo != nil && t.TripStartDate.After(*filter.DateTo) {
			return false
		}
		return true
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(trips) {
			return []model.Trip{}
		}
		trips = trips[filter.Offset:]
	}
	if filter.Limit > 0 {
		limit := repository.EffectiveLimit(filter.Limit)
		if len(trips) > limit {
			trips = trips[:limit]
		}
	}
	return trips
}

func (s *state) createTrip(trip *model.Trip) error {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if trip.TripType == "" {
		trip.TripType = model.TripTypeNormal
	}
	if _, exists := s.trips[trip.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if s.serialTaken(trip.OrganizationID, trip.TripSerialNumber, trip.ID) {
		return gorm.ErrDuplicatedKey
	}
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = s.now()
		trip.UpdatedAt = trip.CreatedAt
	}
	s.trips[trip.ID] = *trip
	return nil
}

func (s *state) updateTrip(trip *model.Trip) error {
	current, err := s.getTrip(trip.OrganizationID, trip.ID)
	if err != nil {
		return err
	}
	if s.serialTaken(trip.OrganizationID, trip.TripSerialNumber, trip.ID) {
		return gorm.ErrDuplicatedKey
	}
	next := *trip
	next.CreatedAt = current.CreatedAt
	next.CreatedBy = current.CreatedBy
	next.DeletedAt = current.DeletedAt
	next.UpdatedAt = s.now()
	s.trips[trip.ID] = next
	*trip = next
	return nil
}

// serialTaken mirrors the partial unique index on (organization_id, trip_serial_number).
func (s *state) serialTaken(orgID uuid.UUID, serial string, self uuid.UUID) bool {
	for id, t := range s.trips {
		if id != self && !t.IsDeleted() && t.OrganizationID == orgID && t.TripSerialNumber == serial {
			return true
		}
	}
	return false
}

func (s *state) softDeleteTrip(orgID, tripID uuid.UUID, at time.Time) error {
	trip, err := s.getTrip(orgID, tripID)
	if err != nil {
		return err
	}
	trip.DeletedAt = gorm.DeletedAt{Time: at, Valid: true}
	s.trips[tripID] = *trip
	return nil
}

func (s *state) purgeTrip(orgID, tripID uuid.UUID) error {
	trip, ok := s.trips[tripID]
	if !ok || trip.OrganizationID != orgID {
		return gorm.ErrRecordNotFound
	}
	delete(s.trips, tripID)
	return nil
}

func (s *state) updateTripEfficiency(orgID, tripID uuid.UUID, kmpl *float64) error {
	trip, ok := s.trips[tripID]
	if !ok || trip.OrganizationID != orgID || trip.IsDeleted() {
		return nil
	}
	if kmpl != nil {
		v := *kmpl
		kmpl = &v
	}
	trip.FuelEfficiencyKmpl = kmpl
	s.trips[tripID] = trip
	return nil
}

func (s *state) appendAudit(entry *model.AuditTrailEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	for _, existing := range s.audit {
		if existing.ID == entry.ID {
			return model.ErrAuditImmutable
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.audit = append(s.audit, *entry)
	return nil
}

// newestFirst returns the audit entries matching keep, newest first.
func (s *state) newestFirst(keep func(model.AuditTrailEntry) bool) []model.AuditTrailEntry {
	out := make([]model.AuditTrailEntry, 0)
	for i := len(s.audit) - 1; i >= 0; i-- {
		if keep(s.audit[i]) {
			out = append(out, s.audit[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matchAudit(entry model.AuditTrailEntry, filter repository.AuditFilter) bool {
	if entry.OrganizationID != filter.OrganizationID {
		return false
	}
	if len(filter.OperationTypes) > 0 && !containsOp(filter.OperationTypes, entry.OperationType) {
		return false
	}
	if len(filter.Severities) > 0 && !containsSeverity(filter.Severities, entry.Severity) {
		return false
	}
	if len(filter.EntityTypes) > 0 && !containsString(filter.EntityTypes, entry.EntityType) {
		return false
	}
	if filter.EntityID != "" && entry.EntityID != filter.EntityID {
		return false
	}
	if filter.DateFrom != nil && entry.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && entry.CreatedAt.After(*filter.DateTo) {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(entry.Reason + " " + entry.EntityID + " " + strings.Join(entry.Tags, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func containsOp(list []model.AuditOperation, v model.AuditOperation) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsSeverity(list []model.Severity, v model.Severity) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
