package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAuditImmutable = errors.New("audit trail entries are immutable")

type AuditOperation string

const (
	AuditOpTripInsert        AuditOperation = "trip_insert"
	AuditOpTripUpdate        AuditOperation = "trip_update"
	AuditOpTripDelete        AuditOperation = "trip_delete"
	AuditOpValidationDryRun  AuditOperation = "validation_dry_run"
	AuditOpChainRebuild      AuditOperation = "chain_rebuild"
	AuditOpBaselineRecompute AuditOperation = "baseline_recompute"
	AuditOpCorrection        AuditOperation = "correction"
)

type AuditCategory string

const (
	AuditCategoryValidation  AuditCategory = "validation"
	AuditCategoryMaintenance AuditCategory = "maintenance"
	AuditCategoryCorrection  AuditCategory = "correction"
)

type AuditDecision string

const (
	AuditDecisionAccepted AuditDecision = "accepted"
	AuditDecisionRejected AuditDecision = "rejected"
	AuditDecisionRecorded AuditDecision = "recorded"
)

const (
	EntityTypeTrip    = "trip"
	EntityTypeVehicle = "vehicle"
)

// AuditTrailEntry is never updated or deleted once written.
type AuditTrailEntry struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	OrganizationID uuid.UUID         `gorm:"type:uuid;not null" json:"organization_id"`
	OperationType  AuditOperation    `gorm:"type:varchar(48);not null" json:"operation_type"`
	Category       AuditCategory     `gorm:"type:varchar(32);not null" json:"category"`
	EntityType     string            `gorm:"type:varchar(32);not null" json:"entity_type"`
	EntityID       string            `gorm:"type:varchar(64);not null" json:"entity_id"`
	ActorID        *uuid.UUID        `gorm:"type:uuid" json:"actor_id"`
	Severity       Severity          `gorm:"type:varchar(16);not null" json:"severity"`
	Decision       AuditDecision     `gorm:"type:varchar(16);not null" json:"decision"`
	Reason         string            `gorm:"type:text" json:"reason"`
	Payload        datatypes.JSONMap `gorm:"type:jsonb" json:"payload"`
	Tags           pq.StringArray    `gorm:"type:text[]" json:"tags"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditTrailEntry) TableName() string {
	return "audit_trail_entries"
}

func (e *AuditTrailEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e *AuditTrailEntry) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (e *AuditTrailEntry) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}

func (e AuditTrailEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AuditRollup is one dashboard bucket: a day, a severity and an operation.
type AuditRollup struct {
	Day           time.Time      `json:"day"`
	Severity      Severity       `json:"severity"`
	OperationType AuditOperation `json:"operation_type"`
	Count         int64          `json:"count"`
}
