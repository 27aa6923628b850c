package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

var (
	org     = uuid.MustParse("0b6a9f0e-1111-4c8e-9d55-00000000000a")
	vehicle = uuid.MustParse("5e0d7c1a-2222-4f0a-8c11-00000000000a")
	day     = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
)

func newTrip(serial string, fromHour int) model.Trip {
	return model.Trip{
		ID:               uuid.New(),
		OrganizationID:   org,
		TripSerialNumber: serial,
		VehicleID:        vehicle,
		TripStartDate:    day.Add(time.Duration(fromHour) * time.Hour),
		TripEndDate:      day.Add(time.Duration(fromHour+1) * time.Hour),
		TripType:         model.TripTypeNormal,
	}
}

func TestWithLocksCommitsOnSuccess(t *testing.T) {
	s := New()
	trip := newTrip("T-1", 8)

	err := s.WithLocks(context.Background(), []string{repository.VehicleLockKey(org, vehicle)}, func(tx repository.Repositories) error {
		if err := tx.CreateTrip(context.Background(), &trip); err != nil {
			return err
		}
		// uncommitted writes are private to the unit of work
		_, err := s.GetTrip(context.Background(), org, trip.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		_, err = tx.GetTrip(context.Background(), org, trip.ID)
		assert.NoError(t, err)
		return tx.AppendAudit(context.Background(), &model.AuditTrailEntry{OrganizationID: org, EntityType: model.EntityTypeTrip, EntityID: trip.ID.String()})
	})
	require.NoError(t, err)

	got, err := s.GetTrip(context.Background(), org, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "T-1", got.TripSerialNumber)

	entries, err := s.ListAuditByEntity(context.Background(), org, model.EntityTypeTrip, trip.ID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWithLocksRollsBackOnError(t *testing.T) {
	s := New()
	trip := newTrip("T-1", 8)
	boom := errors.New("boom")

	err := s.WithLocks(context.Background(), []string{"k"}, func(tx repository.Repositories) error {
		if err := tx.CreateTrip(context.Background(), &trip); err != nil {
			return err
		}
		if err := tx.AppendAudit(context.Background(), &model.AuditTrailEntry{OrganizationID: org}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetTrip(context.Background(), org, trip.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, total, err := s.SearchAudit(context.Background(), repository.AuditFilter{OrganizationID: org})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWithLocksHonorsContext(t *testing.T) {
	s := New()
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.WithLocks(context.Background(), []string{"vehicle:a"}, func(repository.Repositories) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := s.WithLocks(ctx, []string{"driver:b", "vehicle:a"}, func(repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	// the partially acquired key was released
	err = s.WithLocks(context.Background(), []string{"driver:b"}, func(repository.Repositories) error { return nil })
	assert.NoError(t, err)
}

func TestSerialUniqueness(t *testing.T) {
	s := New()
	first := newTrip("T-1", 8)
	require.NoError(t, s.CreateTrip(context.Background(), &first))

	dup := newTrip("T-1", 10)
	assert.ErrorIs(t, s.CreateTrip(context.Background(), &dup), gorm.ErrDuplicatedKey)

	elsewhere := newTrip("T-1", 10)
	elsewhere.OrganizationID = uuid.New()
	assert.NoError(t, s.CreateTrip(context.Background(), &elsewhere))

	// a soft-deleted trip frees its serial
	require.NoError(t, s.SoftDeleteTrip(context.Background(), org, first.ID, day))
	assert.NoError(t, s.CreateTrip(context.Background(), &dup))
}

func TestSoftDeletedTripsAreHidden(t *testing.T) {
	s := New()
	live := newTrip("T-1", 8)
	gone := newTrip("T-2", 10)
	require.NoError(t, s.CreateTrip(context.Background(), &gone))
	require.NoError(t, s.CreateTrip(context.Background(), &live))
	require.NoError(t, s.SoftDeleteTrip(context.Background(), org, gone.ID, day))

	trips, err := s.ListVehicleTrips(context.Background(), org, vehicle)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, live.ID, trips[0].ID)

	all, err := s.ListVehicleTripsWithDeleted(context.Background(), org, vehicle)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, live.ID, all[0].ID)
	assert.True(t, all[1].IsDeleted())

	// efficiency writes skip deleted rows
	kmpl := 9.5
	require.NoError(t, s.UpdateTripEfficiency(context.Background(), org, gone.ID, &kmpl))
	all, err = s.ListVehicleTripsWithDeleted(context.Background(), org, vehicle)
	require.NoError(t, err)
	assert.Nil(t, all[1].FuelEfficiencyKmpl)
}

func TestListTripsScopeAndPaging(t *testing.T) {
	s := New()
	driver := uuid.New()
	for i := 0; i < 5; i++ {
		trip := newTrip("T-"+string(rune('A'+i)), i*2)
		if i%2 == 0 {
			trip.DriverID = &driver
		}
		require.NoError(t, s.CreateTrip(context.Background(), &trip))
	}
	foreign := newTrip("X", 0)
	foreign.OrganizationID = uuid.New()
	require.NoError(t, s.CreateTrip(context.Background(), &foreign))

	all, err := s.ListTrips(context.Background(), repository.TripFilter{Scope: model.OrganizationScope(org)})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	byDriver, err := s.ListTrips(context.Background(), repository.TripFilter{Scope: model.OrganizationScope(org).ForDriver(driver)})
	require.NoError(t, err)
	assert.Len(t, byDriver, 3)

	page, err := s.ListTrips(context.Background(), repository.TripFilter{Scope: model.OrganizationScope(org), Limit: 2, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "T-D", page[0].TripSerialNumber)

	from := day.Add(5 * time.Hour)
	later, err := s.ListTrips(context.Background(), repository.TripFilter{Scope: model.OrganizationScope(org), DateFrom: &from})
	require.NoError(t, err)
	assert.Len(t, later, 3)
}

func TestListDriverTripsWindow(t *testing.T) {
	s := New()
	driver := uuid.New()
	early := newTrip("T-1", 8)
	early.DriverID = &driver
	late := newTrip("T-2", 14)
	late.DriverID = &driver
	require.NoError(t, s.CreateTrip(context.Background(), &early))
	require.NoError(t, s.CreateTrip(context.Background(), &late))

	window := model.TimeWindow{Start: day.Add(8*time.Hour + 30*time.Minute), End: day.Add(12 * time.Hour)}
	trips, err := s.ListDriverTrips(context.Background(), org, driver, &window)
	require.NoError(t, err)
	require.Len(t, trips, 1)
	assert.Equal(t, early.ID, trips[0].ID)

	trips, err = s.ListDriverTrips(context.Background(), org, driver, nil)
	require.NoError(t, err)
	assert.Len(t, trips, 2)
}

func TestAuditIsAppendOnly(t *testing.T) {
	s := New()
	entry := model.AuditTrailEntry{OrganizationID: org, Reason: "first"}
	require.NoError(t, s.AppendAudit(context.Background(), &entry))
	require.NotEqual(t, uuid.Nil, entry.ID)

	entry.Reason = "rewritten"
	assert.ErrorIs(t, s.AppendAudit(context.Background(), &entry), model.ErrAuditImmutable)

	entries, _, err := s.SearchAudit(context.Background(), repository.AuditFilter{OrganizationID: org})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Reason)
}

func TestFleetLookupsAreTenantScoped(t *testing.T) {
	s := New()
	driver := uuid.New()
	retired := uuid.New()
	s.PutVehicle(model.Vehicle{ID: vehicle, OrganizationID: org, PlateNumber: "KZ-001"})
	s.PutVehicle(model.Vehicle{ID: retired, OrganizationID: org, DeletedAt: gorm.DeletedAt{Time: day, Valid: true}})
	s.PutDriver(model.Driver{ID: driver, OrganizationID: org})

	got, err := s.GetVehicle(context.Background(), org, vehicle)
	require.NoError(t, err)
	assert.Equal(t, "KZ-001", got.PlateNumber)

	_, err = s.GetVehicle(context.Background(), uuid.New(), vehicle)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = s.GetVehicle(context.Background(), org, retired)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = s.GetDriver(context.Background(), org, driver)
	assert.NoError(t, err)
	_, err = s.GetDriver(context.Background(), org, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// visible inside a unit of work too
	err = s.WithLocks(context.Background(), []string{"k"}, func(tx repository.Repositories) error {
		_, err := tx.GetVehicle(context.Background(), org, vehicle)
		return err
	})
	assert.NoError(t, err)
}
