package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-integrity-service/internal/model"
)

func TestFindOverlaps(t *testing.T) {
	f := newFixture(t)
	a := withDriver(trip(8, 10, 1000, 1050), driver1)
	b := withDriver(trip(9, 11, 1050, 1080), driver1)
	c := withDriver(trip(9.5, 10.5, 5000, 5040), driver1)
	c.VehicleID = vehicle2
	f.seed(t, a, b, c)

	t.Run("whole organization", func(t *testing.T) {
		records, err := f.sweeps.FindOverlaps(context.Background(), auditor, SweepQuery{})
		require.NoError(t, err)

		kinds := map[model.ConflictKind]int{}
		for _, r := range records {
			kinds[r.Kind]++
		}
		assert.Equal(t, 1, kinds[model.ConflictKindVehicle])
		assert.Equal(t, 3, kinds[model.ConflictKindDriver])
	})

	t.Run("vehicle filter", func(t *testing.T) {
		v := vehicle1
		records, err := f.sweeps.FindOverlaps(context.Background(), auditor, SweepQuery{VehicleID: &v})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, a.ID, records[0].First.ID)
		assert.Equal(t, b.ID, records[0].Second.ID)
		assert.Equal(t, 60.0, records[0].OverlapMinutes)
		assert.NotEmpty(t, records[0].Remediation)
	})

	t.Run("driver filter", func(t *testing.T) {
		d := driver1
		records, err := f.sweeps.FindOverlaps(context.Background(), auditor, SweepQuery{DriverID: &d})
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("paging", func(t *testing.T) {
		records, err := f.sweeps.FindOverlaps(context.Background(), auditor, SweepQuery{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("drivers cannot sweep", func(t *testing.T) {
		_, err := f.sweeps.FindOverlaps(context.Background(), driverPrincipal(driver1), SweepQuery{})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("inverted dates", func(t *testing.T) {
		from, to := at(10), at(8)
		_, err := f.sweeps.FindOverlaps(context.Background(), auditor, SweepQuery{DateFrom: &from, DateTo: &to})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func gapHistory() []model.Trip {
	return []model.Trip{
		trip(8, 10, 1000, 1050),
		trip(11, 13, 1040, 1100),
		trip(14, 16, 1300, 1350),
		trip(17, 18, 1350, 1352),
	}
}

func TestFindOdometerGaps(t *testing.T) {
	f := newFixture(t)
	f.seed(t, gapHistory()...)

	gaps, err := f.sweeps.FindOdometerGaps(context.Background(), auditor, vehicle1)
	require.NoError(t, err)

	require.Len(t, gaps, 2)
	assert.Equal(t, model.GapNegative, gaps[0].Kind)
	assert.Equal(t, -10.0, gaps[0].GapKm)
	assert.Equal(t, model.SeverityError, gaps[0].Severity)
	assert.Equal(t, model.GapLarge, gaps[1].Kind)
	assert.Equal(t, 200.0, gaps[1].GapKm)
	assert.Equal(t, model.SeverityWarning, gaps[1].Severity)

	none, err := f.sweeps.FindOdometerGaps(context.Background(), auditor, vehicle2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindAnomalies(t *testing.T) {
	f := newFixture(t)
	f.seed(t, gapHistory()...)

	buckets, err := f.sweeps.FindAnomalies(context.Background(), auditor, SweepQuery{})
	require.NoError(t, err)

	require.Len(t, buckets, 3)
	assert.Equal(t, CodeNegativeGap, buckets[0].Code)
	assert.Equal(t, model.SeverityError, buckets[0].Severity)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, CodeLargeGap, buckets[1].Code)
	assert.Equal(t, 2, buckets[1].Count)
	assert.Equal(t, CodeShortDistance, buckets[2].Code)
	assert.Equal(t, 1, buckets[2].Count)
	for _, b := range buckets {
		assert.NotEmpty(t, b.Recommendation, b.Code)
	}
}

func TestDetectChainBreaks(t *testing.T) {
	f := newFixture(t)
	r1 := refuel(trip(0, 2, 100, 150), 10)
	t2 := trip(3, 5, 150, 260)
	r3 := refuel(trip(6, 8, 260, 400), 0)
	f.seed(t, r1, t2, r3)

	breaks, err := f.sweeps.DetectChainBreaks(context.Background(), auditor, vehicle1)
	require.NoError(t, err)

	require.Len(t, breaks, 1)
	assert.Equal(t, model.ChainBreakNoFuel, breaks[0].Reason)
	assert.Equal(t, r1.ID, breaks[0].StartTripID)
	assert.Equal(t, r3.ID, breaks[0].EndTripID)
	assert.Equal(t, model.SeverityWarning, breaks[0].Severity)

	// the sweep never trusts the segment cache
	segments, err := f.store.ListSegments(context.Background(), orgA, vehicle1)
	require.NoError(t, err)
	assert.Empty(t, segments)

	_, err = f.sweeps.DetectChainBreaks(context.Background(), driverPrincipal(driver1), vehicle1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	other, err := f.sweeps.DetectChainBreaks(context.Background(), auditor, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}
