package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

func TestBuildSegmentsTankToTank(t *testing.T) {
	chain := NewMileageChain(config.DefaultIntegrity())
	r1 := refuel(trip(8, 10, 950, 1000), 0)
	r2 := refuel(trip(12, 17, 1000, 1400), 40)

	segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{r2, r1}, at(100))

	require.Len(t, segments, 1)
	seg := segments[0]
	assert.True(t, seg.Valid)
	assert.Equal(t, r1.ID, seg.StartTripID)
	assert.Equal(t, r2.ID, seg.EndTripID)
	assert.Equal(t, 400.0, seg.DistanceKm)
	assert.Equal(t, 40.0, seg.FuelLiters)
	require.NotNil(t, seg.Kmpl)
	assert.Equal(t, 10.0, *seg.Kmpl)
}

func TestBuildSegmentsSumsFuelBetweenRefuels(t *testing.T) {
	chain := NewMileageChain(config.DefaultIntegrity())
	r1 := refuel(trip(8, 10, 950, 1000), 50)
	t2 := trip(10, 12, 1000, 1100)
	t2.FuelQuantity = 5
	r3 := refuel(trip(12, 15, 1100, 1300), 25)
	t4 := trip(16, 17, 1300, 1340)

	segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, t2, r3, t4}, at(100))

	require.Len(t, segments, 1)
	assert.Equal(t, 300.0, segments[0].DistanceKm)
	assert.Equal(t, 30.0, segments[0].FuelLiters)
	assert.Equal(t, 10.0, *segments[0].Kmpl)
	assert.Equal(t, []string{t2.ID.String(), r3.ID.String()}, []string(segments[0].TripIDs))

	eff := TripEfficiencies(segments)
	assert.Equal(t, 10.0, eff[t2.ID])
	assert.Equal(t, 10.0, eff[r3.ID])
	_, ok := eff[t4.ID]
	assert.False(t, ok)
}

func TestBuildSegmentsIsIdempotent(t *testing.T) {
	chain := NewMileageChain(config.DefaultIntegrity())
	trips := []model.Trip{
		refuel(trip(0, 2, 100, 150), 10),
		trip(3, 5, 150, 260),
		refuel(trip(6, 8, 260, 400), 30),
		refuel(trip(9, 11, 400, 520), 12),
	}

	first := chain.BuildSegments(orgA, vehicle1, trips, at(100))
	second := chain.BuildSegments(orgA, vehicle1, []model.Trip{trips[3], trips[1], trips[0], trips[2]}, at(100))

	assert.Equal(t, first, second)
}

func TestBuildSegmentsBreaks(t *testing.T) {
	chain := NewMileageChain(config.DefaultIntegrity())

	t.Run("no fuel", func(t *testing.T) {
		segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{
			refuel(trip(8, 10, 950, 1000), 20),
			refuel(trip(11, 13, 1000, 1100), 0),
		}, at(100))
		require.Len(t, segments, 1)
		assert.False(t, segments[0].Valid)
		assert.Equal(t, string(model.ChainBreakNoFuel), segments[0].BreakReason)
	})

	t.Run("non increasing odometer", func(t *testing.T) {
		segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{
			refuel(trip(8, 10, 950, 1000), 20),
			refuel(trip(11, 12, 1000, 1000), 10),
		}, at(100))
		assert.Equal(t, string(model.ChainBreakNonIncreasingOdometer), segments[0].BreakReason)
	})

	t.Run("implausible efficiency", func(t *testing.T) {
		segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{
			refuel(trip(8, 10, 950, 1000), 20),
			refuel(trip(11, 13, 1000, 1100), 1),
		}, at(100))
		assert.Equal(t, string(model.ChainBreakImplausibleEfficiency), segments[0].BreakReason)
	})

	t.Run("discontinuity and deleted trips", func(t *testing.T) {
		r1 := refuel(trip(8, 10, 950, 1000), 20)
		t2 := trip(14, 16, 1200, 1250)
		r3 := refuel(trip(17, 19, 1250, 1400), 40)

		segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, t2, r3}, at(100))
		assert.Equal(t, string(model.ChainBreakOdometerDiscontinuity), segments[0].BreakReason)

		gone := trip(11, 13, 1000, 1200)
		gone.DeletedAt = gorm.DeletedAt{Time: at(50), Valid: true}
		trips := []model.Trip{r1, gone, t2, r3}
		segments = chain.BuildSegments(orgA, vehicle1, trips, at(100))
		assert.Equal(t, string(model.ChainBreakDeletedTrips), segments[0].BreakReason)

		breaks := chain.Breaks(segments, trips)
		require.Len(t, breaks, 1)
		assert.Equal(t, model.SeverityWarning, breaks[0].Severity)
		assert.Equal(t, []uuid.UUID{gone.ID}, breaks[0].DeletedTripIDs)
		assert.Equal(t, r1.TripSerialNumber, breaks[0].StartSerial)
	})

	t.Run("other vehicles are ignored", func(t *testing.T) {
		foreign := refuel(trip(9, 10, 0, 10), 5)
		foreign.VehicleID = vehicle2
		segments := chain.BuildSegments(orgA, vehicle1, []model.Trip{
			refuel(trip(8, 10, 950, 1000), 20),
			foreign,
		}, at(100))
		assert.Empty(t, segments)
	})
}

func TestDependents(t *testing.T) {
	r1 := refuel(trip(8, 10, 950, 1000), 20)
	t2 := trip(10, 12, 1000, 1100)
	r3 := refuel(trip(12, 15, 1100, 1300), 25)
	t4 := trip(16, 17, 1300, 1340)
	trips := []model.Trip{r1, t2, r3, t4}

	assert.Equal(t, []uuid.UUID{t2.ID, t4.ID}, Dependents(r3, trips))
	assert.Equal(t, []uuid.UUID{t2.ID}, Dependents(r1, trips))
	assert.Nil(t, Dependents(t2, trips))

	lone := refuel(trip(30, 31, 2000, 2010), 10)
	assert.Empty(t, Dependents(lone, []model.Trip{lone}))
}

func TestDiff(t *testing.T) {
	chain := NewMileageChain(config.DefaultIntegrity())
	r1 := refuel(trip(8, 10, 950, 1000), 20)
	t2 := trip(10, 12, 1000, 1100)
	r3 := refuel(trip(12, 15, 1100, 1300), 30)
	before := chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, t2, r3}, at(100))

	t.Run("fuel correction modifies the segment", func(t *testing.T) {
		fuel := 20.0
		changed := ProposedChange{FuelQuantity: &fuel}.Apply(r3)
		after := chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, t2, changed}, at(100))

		affected := Diff(before, after)

		require.Len(t, affected, 1)
		assert.Equal(t, model.SegmentModified, affected[0].Change)
		assert.Equal(t, 10.0, *affected[0].BeforeKmpl)
		assert.Equal(t, 15.0, *affected[0].AfterKmpl)
		assert.ElementsMatch(t, []uuid.UUID{t2.ID, r3.ID}, affected[0].TripIDs)
	})

	t.Run("new refuel splits the segment", func(t *testing.T) {
		yes := true
		split := ProposedChange{RefuelingDone: &yes}.Apply(t2)
		after := chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, split, r3}, at(100))

		affected := Diff(before, after)

		changes := map[model.SegmentChange]int{}
		for _, a := range affected {
			changes[a.Change]++
		}
		assert.Equal(t, 1, changes[model.SegmentRemoved])
		assert.Equal(t, 2, changes[model.SegmentAdded])
	})

	t.Run("unchanged chain has no diff", func(t *testing.T) {
		assert.Empty(t, Diff(before, chain.BuildSegments(orgA, vehicle1, []model.Trip{r1, t2, r3}, at(200))))
	})
}
