package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
)

// AuditRepository exposes append and read paths only.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) AppendAudit(ctx context.Context, entry *model.AuditTrailEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepository) ListAuditByEntity(ctx context.Context, orgID uuid.UUID, entityType, entityID string, limit int) ([]model.AuditTrailEntry, error) {
	var entries []model.AuditTrailEntry
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ? AND entity_id = ?", orgID, entityType, entityID).
		Order("created_at DESC, id DESC").
		Limit(EffectiveLimit(limit)).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *AuditRepository) SearchAudit(ctx context.Context, filter AuditFilter) ([]model.AuditTrailEntry, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.AuditTrailEntry{}).
		Where("organization_id = ?", filter.OrganizationID)

	if len(filter.OperationTypes) > 0 {
		query = query.Where("operation_type IN ?", filter.OperationTypes)
	}
	if len(filter.Severities) > 0 {
		query = query.Where("severity IN ?", filter.Severities)
	}
	if len(filter.EntityTypes) > 0 {
		query = query.Where("entity_type IN ?", filter.EntityTypes)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("(reason ILIKE ? OR entity_id ILIKE ? OR array_to_string(tags, ' ') ILIKE ?)", search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var entries []model.AuditTrailEntry
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(EffectiveLimit(filter.Limit)).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *AuditRepository) AuditRollups(ctx context.Context, filter AuditRollupFilter) ([]model.AuditRollup, error) {
	query := r.db.WithContext(ctx).
		Model(&model.AuditTrailEntry{}).
		Select("date_trunc('day', created_at) AS day, severity, operation_type, COUNT(*) AS count").
		Where("organization_id = ?", filter.OrganizationID)
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var rollups []model.AuditRollup
	if err := query.
		Group("day, severity, operation_type").
		Order("day ASC, severity ASC, operation_type ASC").
		Scan(&rollups).Error; err != nil {
		return nil, err
	}
	return rollups, nil
}
