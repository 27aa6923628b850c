package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
)

var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrConflict             = errors.New("conflict")
	ErrCorrectnessViolation = errors.New("correctness violation")
	ErrDependentData        = errors.New("dependent data")
	ErrSystem               = errors.New("system error")
	ErrAuditImmutable       = model.ErrAuditImmutable
)

// CorrectnessViolation carries the findings that made a trip impossible as recorded.
type CorrectnessViolation struct {
	TripID   uuid.UUID
	Stage    string
	Findings model.Findings
}

func (e *CorrectnessViolation) Error() string {
	return fmt.Sprintf("correctness violation in %s: %s", e.Stage, strings.Join(e.Findings.Messages(), "; "))
}

func (e *CorrectnessViolation) Unwrap() error {
	return ErrCorrectnessViolation
}

// ConflictError lists every trip the candidate window intersects, nearest start first.
type ConflictError struct {
	TripID    uuid.UUID
	Conflicts []model.Conflict
}

func (e *ConflictError) First() model.Conflict {
	return e.Conflicts[0]
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "trip conflict"
	}
	return conflictMessage(e.First())
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

type DependentDataError struct {
	TripID           uuid.UUID
	DependentTripIDs []uuid.UUID
}

func (e *DependentDataError) Error() string {
	return dependentDataMessage(e.TripID, e.DependentTripIDs)
}

func (e *DependentDataError) Unwrap() error {
	return ErrDependentData
}

// SystemError wraps storage failures. It matches both ErrSystem and the underlying cause.
type SystemError struct {
	Op  string
	Err error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *SystemError) Unwrap() []error {
	return []error{ErrSystem, e.Err}
}

// IsClientError reports errors caused by the request rather than the service.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrCorrectnessViolation) ||
		errors.Is(err, ErrDependentData)
}

// IsRejection reports the decision errors that are written to the audit trail.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCorrectnessViolation) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrDependentData)
}

// IsRetryable is false for every decision; the caller owns retry policy for system errors.
func IsRetryable(err error) bool {
	return false
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storageError maps repository errors onto the service taxonomy.
func storageError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsClientError(err), errors.Is(err, ErrSystem):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %s: unknown vehicle or driver", ErrInvalidInput, op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s: duplicate key", ErrConflict, op)
	case errors.Is(err, model.ErrAuditImmutable):
		return err
	default:
		return &SystemError{Op: op, Err: err}
	}
}
