package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-integrity-service/internal/model"
)

func TestValidateTripDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	a := withDriver(trip(8, 10, 1000, 1050), driver1)
	f.insert(t, a)

	t.Run("conflicting candidate", func(t *testing.T) {
		before := f.auditCount(t)
		report, err := f.trips.ValidateTrip(context.Background(), admin, trip(9, 11, 1050, 1080))
		require.NoError(t, err)

		assert.False(t, report.Accepted)
		require.Len(t, report.Conflicts, 1)
		assert.Equal(t, a.ID, report.Conflicts[0].Trip.ID)
		assert.Equal(t, model.AuditOpValidationDryRun, report.Audit.OperationType)
		assert.Equal(t, model.AuditDecisionRejected, report.Audit.Decision)
		assert.Equal(t, before+1, f.auditCount(t))
	})

	t.Run("clean candidate", func(t *testing.T) {
		report, err := f.trips.ValidateTrip(context.Background(), admin, trip(10, 12, 1050, 1090))
		require.NoError(t, err)

		assert.True(t, report.Accepted)
		assert.Equal(t, model.SeverityInfo, report.Severity)
		assert.Empty(t, report.Conflicts)
	})

	t.Run("range rejection", func(t *testing.T) {
		report, err := f.trips.ValidateTrip(context.Background(), admin, trip(10, 12, 1050, 1000))
		require.NoError(t, err)

		assert.False(t, report.Accepted)
		assert.Equal(t, RangeRejection, report.RangeOutcome)
		assert.Contains(t, codes(report.Findings), CodeNegativeDistance)
	})

	t.Run("edit of a stored trip is checked as an update", func(t *testing.T) {
		edited := a
		edited.TripEndDate = at(10.5)
		edited.EndKm = 1060
		report, err := f.trips.ValidateTrip(context.Background(), admin, edited)
		require.NoError(t, err)

		assert.Equal(t, WriteUpdate, report.Mode)
		assert.True(t, report.Accepted)
		assert.Empty(t, report.Conflicts)
		assert.Equal(t, "update", report.Audit.Payload["mode"])
	})

	t.Run("edit of someone else's trip is refused", func(t *testing.T) {
		taken := withDriver(a, driver2)
		_, err := f.trips.ValidateTrip(context.Background(), driverPrincipal(driver2), taken)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown id is a new trip", func(t *testing.T) {
		report, err := f.trips.ValidateTrip(context.Background(), admin, trip(12, 14, 1050, 1090))
		require.NoError(t, err)
		assert.Equal(t, WriteInsert, report.Mode)
	})

	trips, err := f.store.ListVehicleTrips(context.Background(), orgA, vehicle1)
	require.NoError(t, err)
	assert.Len(t, trips, 1)
	assert.Equal(t, at(10), trips[0].TripEndDate)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	a := withDriver(trip(8, 10, 1000, 1050), driver1)
	f.insert(t, a)

	window := model.TimeWindow{Start: at(9), End: at(11)}

	t.Run("vehicle busy", func(t *testing.T) {
		v := vehicle1
		got, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{VehicleID: &v, Window: window})
		require.NoError(t, err)
		assert.False(t, got.Available)
		require.Len(t, got.Conflicts, 1)
		assert.Equal(t, model.ConflictKindVehicle, got.Conflicts[0].Kind)
		assert.Equal(t, 60.0, got.Conflicts[0].OverlapMinutes)
	})

	t.Run("excluding the trip itself", func(t *testing.T) {
		v := vehicle1
		got, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{VehicleID: &v, Window: window, ExcludeTripID: &a.ID})
		require.NoError(t, err)
		assert.True(t, got.Available)
	})

	t.Run("driver busy on another vehicle", func(t *testing.T) {
		v, d := vehicle2, driver1
		got, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{VehicleID: &v, DriverID: &d, Window: window})
		require.NoError(t, err)
		require.Len(t, got.Conflicts, 1)
		assert.Equal(t, model.ConflictKindDriver, got.Conflicts[0].Kind)
	})

	t.Run("back to back is free", func(t *testing.T) {
		v := vehicle1
		got, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{VehicleID: &v, Window: model.TimeWindow{Start: at(10), End: at(12)}})
		require.NoError(t, err)
		assert.True(t, got.Available)
		assert.NotNil(t, got.Conflicts)
	})

	t.Run("needs a subject", func(t *testing.T) {
		_, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{Window: window})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("inverted window", func(t *testing.T) {
		v := vehicle1
		_, err := f.trips.CheckAvailability(context.Background(), admin, AvailabilityQuery{VehicleID: &v, Window: model.TimeWindow{Start: at(11), End: at(9)}})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestPreviewCascadeImpact(t *testing.T) {
	f := newFixture(t)
	r1 := refuel(trip(0, 2, 100, 150), 10)
	t2 := trip(3, 5, 150, 260)
	r3 := refuel(trip(6, 8, 260, 400), 30)
	for _, tr := range []model.Trip{r1, t2, r3} {
		f.insert(t, tr)
	}

	fuel := 20.0
	affected, err := f.trips.PreviewCascadeImpact(context.Background(), admin, r3.ID, ProposedChange{FuelQuantity: &fuel})
	require.NoError(t, err)

	require.Len(t, affected, 1)
	assert.Equal(t, model.SegmentModified, affected[0].Change)
	assert.Equal(t, []uuid.UUID{t2.ID, r3.ID}, affected[0].TripIDs)
	require.NotNil(t, affected[0].AfterKmpl)
	assert.Equal(t, 12.5, *affected[0].AfterKmpl)

	stored, err := f.store.GetTrip(context.Background(), orgA, r3.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stored.FuelQuantity)

	t.Run("no change", func(t *testing.T) {
		_, err := f.trips.PreviewCascadeImpact(context.Background(), admin, r3.ID, ProposedChange{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("auditors cannot preview", func(t *testing.T) {
		_, err := f.trips.PreviewCascadeImpact(context.Background(), auditor, r3.ID, ProposedChange{FuelQuantity: &fuel})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("unknown trip", func(t *testing.T) {
		_, err := f.trips.PreviewCascadeImpact(context.Background(), admin, uuid.New(), ProposedChange{FuelQuantity: &fuel})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRebuildMileageChainNeedsMaintainer(t *testing.T) {
	f := newFixture(t)
	dispatcher := model.Principal{UserID: uuid.New(), OrgID: orgA, Role: model.UserRoleDispatcher}

	_, err := f.trips.RebuildMileageChain(context.Background(), dispatcher, vehicle1)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.trips.RebuildMileageChain(context.Background(), admin, uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
