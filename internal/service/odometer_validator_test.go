package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

func TestNeighborsSkipsSelfDeletedAndOtherVehicles(t *testing.T) {
	a := trip(8, 10, 1000, 1050)
	deleted := trip(10, 11, 1050, 1060)
	deleted.DeletedAt = gorm.DeletedAt{Time: at(20), Valid: true}
	other := trip(10, 11, 5000, 5010)
	other.VehicleID = vehicle2
	c := trip(14, 16, 1100, 1150)

	candidate := trip(11, 12, 1050, 1090)
	pred, succ := Neighbors(candidate, []model.Trip{a, deleted, other, c, candidate})

	require.NotNil(t, pred)
	require.NotNil(t, succ)
	assert.Equal(t, a.ID, pred.ID)
	assert.Equal(t, c.ID, succ.ID)
}

func TestOdometerCheck(t *testing.T) {
	v := NewOdometerValidator(config.DefaultIntegrity())
	a := trip(8, 10, 1000, 1050)
	c := trip(14, 16, 1150, 1200)
	history := []model.Trip{a, c}

	t.Run("continuous", func(t *testing.T) {
		findings, err := v.Check(trip(10, 12, 1050, 1090), history)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, CodeContinuityOK, findings[0].Code)
		assert.Equal(t, model.SeverityInfo, findings[0].Severity)
	})

	t.Run("negative gap against predecessor", func(t *testing.T) {
		_, err := v.Check(trip(10, 12, 1040, 1090), history)

		var violation *CorrectnessViolation
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, StageContinuity, violation.Stage)
		require.Len(t, violation.Findings, 1)
		assert.Equal(t, CodeNegativeGap, violation.Findings[0].Code)
		assert.Equal(t, -10.0, *violation.Findings[0].Value)
		assert.Equal(t, a.ID, *violation.Findings[0].RelatedTripID)
	})

	t.Run("end beyond successor start", func(t *testing.T) {
		_, err := v.Check(trip(10, 12, 1050, 1160), history)

		var violation *CorrectnessViolation
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, CodeSuccessorOverrun, violation.Findings[0].Code)
		assert.ErrorIs(t, err, ErrCorrectnessViolation)
	})

	t.Run("large gap is a warning", func(t *testing.T) {
		findings, err := v.Check(trip(17, 19, 1360, 1410), history)
		require.NoError(t, err)
		require.Len(t, findings, 1)
		assert.Equal(t, CodeLargeGap, findings[0].Code)
		assert.Equal(t, model.SeverityWarning, findings[0].Severity)
		assert.Equal(t, 160.0, *findings[0].Value)
	})

	t.Run("first trip has no constraint", func(t *testing.T) {
		findings, err := v.Check(trip(1, 2, 0, 10), nil)
		require.NoError(t, err)
		assert.Equal(t, CodeContinuityOK, findings[0].Code)
	})
}

func TestOdometerGaps(t *testing.T) {
	v := NewOdometerValidator(config.DefaultIntegrity())
	trips := []model.Trip{
		trip(8, 10, 1000, 1050),
		trip(10, 12, 1050, 1090),
		trip(12, 14, 1250, 1300),
		trip(14, 16, 1290, 1340),
	}

	gaps := v.Gaps(trips)

	require.Len(t, gaps, 2)
	assert.Equal(t, model.GapLarge, gaps[0].Kind)
	assert.Equal(t, 160.0, gaps[0].GapKm)
	assert.Equal(t, model.GapNegative, gaps[1].Kind)
	assert.Equal(t, model.SeverityError, gaps[1].Severity)
}
