package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

// AuditService is the read side of the audit trail. Writes go through appendDecision inside the
// caller's unit of work so the entry commits or rolls back with the trip.
type AuditService struct {
	store repository.Store
}

func NewAuditService(store repository.Store) *AuditService {
	return &AuditService{store: store}
}

type AuditSearchOptions struct {
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

type AuditPage struct {
	Entries    []model.AuditTrailEntry `json:"entries"`
	TotalCount int64                   `json:"total_count"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

func (s *AuditService) GetEntityAuditTrail(ctx context.Context, principal model.Principal, entityType, entityID string, limit int) ([]model.AuditTrailEntry, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return nil, invalidInput("entity type and id are required")
	}
	entries, err := s.store.ListAuditByEntity(ctx, principal.OrgID, entityType, entityID, limit)
	if err != nil {
		return nil, storageError("list audit by entity", err)
	}
	return entries, nil
}

func (s *AuditService) SearchAuditTrail(ctx context.Context, principal model.Principal, opts AuditSearchOptions) (*AuditPage, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	for _, sev := range opts.Severities {
		if !sev.Valid() {
			return nil, invalidInput("unknown severity %q", sev)
		}
	}
	if opts.DateFrom != nil && opts.DateTo != nil && opts.DateTo.Before(*opts.DateFrom) {
		return nil, invalidInput("date_to is before date_from")
	}

	filter := repository.AuditFilter{
		OrganizationID: principal.OrgID,
		Search:         strings.TrimSpace(opts.Search),
		OperationTypes: opts.OperationTypes,
		Severities:     opts.Severities,
		EntityTypes:    opts.EntityTypes,
		EntityID:       opts.EntityID,
		DateFrom:       opts.DateFrom,
		DateTo:         opts.DateTo,
		Limit:          repository.EffectiveLimit(opts.Limit),
		Offset:         opts.Offset,
	}
	entries, total, err := s.store.SearchAudit(ctx, filter)
	if err != nil {
		return nil, storageError("search audit", err)
	}
	return &AuditPage{Entries: entries, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *AuditService) Rollups(ctx context.Context, principal model.Principal, from, to *time.Time) ([]model.AuditRollup, error) {
	if !principal.CanReadAudit() {
		return nil, ErrPermissionDenied
	}
	rollups, err := s.store.AuditRollups(ctx, repository.AuditRollupFilter{
		OrganizationID: principal.OrgID,
		DateFrom:       from,
		DateTo:         to,
	})
	if err != nil {
		return nil, storageError("audit rollups", err)
	}
	return rollups, nil
}

// decision is one audit record in the making.
type decision struct {
	orgID      uuid.UUID
	actorID    uuid.UUID
	operation  model.AuditOperation
	category   model.AuditCategory
	entityType string
	entityID   string
	outcome    model.AuditDecision
	findings   model.Findings
	severity   model.Severity
	reason     string
	tags       []string
	payload    map[string]any
}

func (d decision) entry() *model.AuditTrailEntry {
	severity := d.severity
	if severity == "" {
		severity = d.findings.Worst()
	}
	payload := datatypes.JSONMap{}
	for k, v := range d.payload {
		payload[k] = v
	}
	if len(d.findings) > 0 {
		payload["findings"] = d.findings
	}
	reason := d.reason
	if reason == "" {
		reason = strings.Join(d.findings.Messages(), "; ")
	}

	tags := pq.StringArray{}
	seen := make(map[string]struct{})
	addTag := func(tag string) {
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	for _, f := range d.findings {
		if f.Severity != model.SeverityInfo || f.Stage == StageRange {
			addTag(f.Code)
		}
	}
	for _, tag := range d.tags {
		addTag(tag)
	}

	entry := &model.AuditTrailEntry{
		OrganizationID: d.orgID,
		OperationType:  d.operation,
		Category:       d.category,
		EntityType:     d.entityType,
		EntityID:       d.entityID,
		Severity:       severity,
		Decision:       d.outcome,
		Reason:         reason,
		Payload:        payload,
		Tags:           tags,
	}
	if d.actorID != uuid.Nil {
		actor := d.actorID
		entry.ActorID = &actor
	}
	return entry
}

func appendDecision(ctx context.Context, repos repository.Repositories, d decision) (*model.AuditTrailEntry, error) {
	entry := d.entry()
	if err := repos.AppendAudit(ctx, entry); err != nil {
		return nil, storageError("append audit", err)
	}
	return entry, nil
}

func tripSnapshot(t model.Trip) map[string]any {
	snap := map[string]any{
		"id":                 t.ID.String(),
		"trip_serial_number": t.TripSerialNumber,
		"vehicle_id":         t.VehicleID.String(),
		"trip_start_date":    t.TripStartDate,
		"trip_end_date":      t.TripEndDate,
		"start_km":           t.StartKm,
		"end_km":             t.EndKm,
		"refueling_done":     t.RefuelingDone,
		"fuel_quantity":      t.FuelQuantity,
		"trip_type":          string(t.TripType),
	}
	if t.DriverID != nil {
		snap["driver_id"] = t.DriverID.String()
	}
	if t.FuelEfficiencyKmpl != nil {
		snap["fuel_efficiency_kmpl"] = *t.FuelEfficiencyKmpl
	}
	return snap
}
