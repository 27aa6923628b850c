package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository/memory"
)

var (
	base = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	orgA     = uuid.MustParse("0b6a9f0e-1111-4c8e-9d55-000000000001")
	orgB     = uuid.MustParse("0b6a9f0e-1111-4c8e-9d55-000000000002")
	vehicle1 = uuid.MustParse("5e0d7c1a-2222-4f0a-8c11-000000000001")
	vehicle2 = uuid.MustParse("5e0d7c1a-2222-4f0a-8c11-000000000002")
	driver1  = uuid.MustParse("9a3b2c1d-3333-4b7e-a0f2-000000000001")
	driver2  = uuid.MustParse("9a3b2c1d-3333-4b7e-a0f2-000000000002")
	vehicleB = uuid.MustParse("5e0d7c1a-2222-4f0a-8c11-0000000000b1")

	admin   = model.Principal{UserID: uuid.MustParse("aa000000-0000-0000-0000-000000000001"), OrgID: orgA, Role: model.UserRoleFleetAdmin}
	auditor = model.Principal{UserID: uuid.MustParse("aa000000-0000-0000-0000-000000000002"), OrgID: orgA, Role: model.UserRoleAuditor}
)

func at(hour float64) time.Time {
	return base.Add(time.Duration(hour * float64(time.Hour)))
}

// trip builds a live normal trip of vehicle1 between two hour offsets of base.
func trip(fromHour, toHour, startKm, endKm float64) model.Trip {
	return model.Trip{
		ID:               uuid.New(),
		OrganizationID:   orgA,
		TripSerialNumber: fmt.Sprintf("T-%v-%v", fromHour, startKm),
		VehicleID:        vehicle1,
		TripStartDate:    at(fromHour),
		TripEndDate:      at(toHour),
		StartKm:          startKm,
		EndKm:            endKm,
		TripType:         model.TripTypeNormal,
		FuelExpense:      decimal.Zero,
	}
}

func refuel(t model.Trip, liters float64) model.Trip {
	t.RefuelingDone = true
	t.FuelQuantity = liters
	return t
}

func withDriver(t model.Trip, id uuid.UUID) model.Trip {
	t.DriverID = &id
	return t
}

func driverPrincipal(id uuid.UUID) model.Principal {
	return model.Principal{UserID: uuid.New(), OrgID: orgA, Role: model.UserRoleDriver, DriverID: &id}
}

type counterSerials struct {
	n atomic.Int64
}

func (c *counterSerials) Next() string {
	return fmt.Sprintf("TRP-%05d", c.n.Add(1))
}

type fixture struct {
	cfg       config.IntegrityConfig
	store     *memory.Store
	trips     *TripService
	sweeps    *SweepService
	audit     *AuditService
	baselines *BaselineService
}

func newFixture(t *testing.T, tweak ...func(*config.IntegrityConfig)) *fixture {
	t.Helper()
	cfg := config.DefaultIntegrity()
	for _, fn := range tweak {
		fn(&cfg)
	}

	store := memory.New()
	now := func() time.Time { return base.Add(30 * 24 * time.Hour) }
	store.SetClock(now)
	for _, id := range []uuid.UUID{vehicle1, vehicle2} {
		store.PutVehicle(model.Vehicle{ID: id, OrganizationID: orgA, PlateNumber: "A-" + id.String()[:4]})
	}
	store.PutVehicle(model.Vehicle{ID: vehicleB, OrganizationID: orgB, PlateNumber: "B-1"})
	for _, id := range []uuid.UUID{driver1, driver2} {
		store.PutDriver(model.Driver{ID: id, OrganizationID: orgA})
	}

	trips := NewTripService(store, cfg, &counterSerials{}, zerolog.Nop())
	trips.now = now
	baselines := NewBaselineService(store, cfg, zerolog.Nop())
	baselines.now = now

	return &fixture{
		cfg:       cfg,
		store:     store,
		trips:     trips,
		sweeps:    NewSweepService(store, cfg),
		audit:     NewAuditService(store),
		baselines: baselines,
	}
}

func (f *fixture) insert(t *testing.T, candidate model.Trip) *CommitResult {
	t.Helper()
	result, err := f.trips.ValidateAndCommitTrip(context.Background(), admin, candidate, WriteInsert, WriteOptions{})
	if err != nil {
		t.Fatalf("insert %s: %v", candidate.TripSerialNumber, err)
	}
	return result
}

func (f *fixture) auditCount(t *testing.T) int64 {
	t.Helper()
	page, err := f.audit.SearchAuditTrail(context.Background(), admin, AuditSearchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("search audit: %v", err)
	}
	return page.TotalCount
}

// seed stores trips as-is, bypassing the write path, the way rows imported before validation look.
func (f *fixture) seed(t *testing.T, trips ...model.Trip) {
	t.Helper()
	for i := range trips {
		if err := f.store.CreateTrip(context.Background(), &trips[i]); err != nil {
			t.Fatalf("seed %s: %v", trips[i].TripSerialNumber, err)
		}
	}
}
