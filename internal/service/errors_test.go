package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	violation := &CorrectnessViolation{Stage: StageRange}

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"missing row", gorm.ErrRecordNotFound, ErrNotFound},
		{"wrapped missing row", fmt.Errorf("get: %w", gorm.ErrRecordNotFound), ErrNotFound},
		{"duplicate key", gorm.ErrDuplicatedKey, ErrConflict},
		{"foreign key", gorm.ErrForeignKeyViolated, ErrInvalidInput},
		{"decision passes through", violation, ErrCorrectnessViolation},
		{"immutable audit", model.ErrAuditImmutable, ErrAuditImmutable},
		{"anything else", cause, ErrSystem},
		{"deadline", context.DeadlineExceeded, ErrSystem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, storageError("op", tt.in), tt.want)
		})
	}

	assert.NoError(t, storageError("op", nil))

	wrapped := storageError("list trips", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.EqualError(t, wrapped, "list trips: connection reset")

	var sys *SystemError
	assert.True(t, errors.As(wrapped, &sys))
	assert.Equal(t, "list trips", sys.Op)

	// already classified errors are not wrapped twice
	assert.Same(t, violation, storageError("outer", violation))
}

func TestErrorClassification(t *testing.T) {
	conflict := &ConflictError{Conflicts: []model.Conflict{{Kind: model.ConflictKindVehicle}}}
	dependent := &DependentDataError{TripID: uuid.New(), DependentTripIDs: []uuid.UUID{uuid.New()}}
	violation := &CorrectnessViolation{Stage: StageContinuity}
	system := &SystemError{Op: "x", Err: errors.New("boom")}

	for _, err := range []error{conflict, dependent, violation} {
		assert.True(t, IsRejection(err), err.Error())
		assert.True(t, IsClientError(err), err.Error())
		assert.False(t, IsRetryable(err), err.Error())
	}

	for _, err := range []error{ErrPermissionDenied, ErrNotFound, invalidInput("bad %s", "value")} {
		assert.False(t, IsRejection(err), err.Error())
		assert.True(t, IsClientError(err), err.Error())
	}

	assert.False(t, IsRejection(system))
	assert.False(t, IsClientError(system))
	assert.ErrorIs(t, system, ErrSystem)
}

func TestConflictErrorMessage(t *testing.T) {
	assert.Equal(t, "trip conflict", (&ConflictError{}).Error())

	err := &ConflictError{Conflicts: []model.Conflict{{
		Kind:           model.ConflictKindDriver,
		Trip:           model.TripBrief{TripSerialNumber: "A", Window: model.TimeWindow{Start: at(8), End: at(10)}},
		OverlapType:    model.OverlapAtStart,
		OverlapMinutes: 60,
	}}}
	assert.Equal(t, "Driver conflict with trip A (2025-03-10 08:00 to 2025-03-10 10:00): overlap_at_start, 60 min overlap", err.Error())
}
