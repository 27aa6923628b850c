package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		plate_number VARCHAR(32) NOT NULL,
		brand VARCHAR(64),
		model VARCHAR(64),
		deleted_at TIMESTAMPTZ,
		CONSTRAINT uniq_vehicles_org UNIQUE (organization_id, id)
	);`,
	`CREATE TABLE IF NOT EXISTS drivers (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		organization_id UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		full_name VARCHAR(255) NOT NULL,
		phone VARCHAR(32),
		deleted_at TIMESTAMPTZ,
		CONSTRAINT uniq_drivers_org UNIQUE (organization_id, id)
	);`,
	`CREATE TABLE IF NOT EXISTS trips (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		organization_id UUID NOT NULL REFERENCES organizations(id),
		trip_serial_number VARCHAR(64) NOT NULL,
		vehicle_id UUID NOT NULL,
		driver_id UUID,
		trip_start_date TIMESTAMPTZ NOT NULL,
		trip_end_date TIMESTAMPTZ NOT NULL,
		start_km NUMERIC(12,1) NOT NULL,
		end_km NUMERIC(12,1) NOT NULL,
		refueling_done BOOLEAN NOT NULL DEFAULT FALSE,
		fuel_quantity NUMERIC(10,2) NOT NULL DEFAULT 0,
		fuel_rate_per_liter NUMERIC(10,2) NOT NULL DEFAULT 0,
		fuel_efficiency_kmpl NUMERIC(8,2),
		fuel_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		driver_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		toll_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		other_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		breakdown_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		misc_expense NUMERIC(12,2) NOT NULL DEFAULT 0,
		trip_type VARCHAR(32) NOT NULL DEFAULT 'normal',
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ,
		CONSTRAINT chk_trips_window CHECK (trip_end_date > trip_start_date),
		CONSTRAINT chk_trips_odometer CHECK (start_km >= 0 AND end_km >= start_km),
		CONSTRAINT chk_trips_fuel CHECK (fuel_quantity >= 0),
		CONSTRAINT chk_trips_type CHECK (trip_type IN ('normal', 'maintenance', 'test', 'long_haul', 'interstate', 'refueling_only')),
		CONSTRAINT fk_trips_vehicle FOREIGN KEY (organization_id, vehicle_id) REFERENCES vehicles (organization_id, id),
		CONSTRAINT fk_trips_driver FOREIGN KEY (organization_id, driver_id) REFERENCES drivers (organization_id, id)
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_trips_serial_per_org
		ON trips (organization_id, trip_serial_number)
		WHERE deleted_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_vehicle_start
		ON trips (organization_id, vehicle_id, trip_start_date)
		WHERE deleted_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_driver_start
		ON trips (organization_id, driver_id, trip_start_date)
		WHERE deleted_at IS NULL AND driver_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_vehicle_refuels
		ON trips (organization_id, vehicle_id, trip_start_date)
		WHERE refueling_done AND deleted_at IS NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_trips_deleted_at ON trips (deleted_at);`,
	`CREATE TABLE IF NOT EXISTS mileage_segments (
		id UUID PRIMARY KEY,
		organization_id UUID NOT NULL,
		vehicle_id UUID NOT NULL,
		sequence INTEGER NOT NULL,
		start_trip_id UUID NOT NULL,
		end_trip_id UUID NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		start_odometer_km NUMERIC(12,1) NOT NULL,
		end_odometer_km NUMERIC(12,1) NOT NULL,
		distance_km NUMERIC(12,1) NOT NULL,
		fuel_liters NUMERIC(10,2) NOT NULL,
		kmpl NUMERIC(8,2),
		trip_ids TEXT[] NOT NULL DEFAULT '{}',
		valid BOOLEAN NOT NULL,
		break_reason VARCHAR(48),
		computed_at TIMESTAMPTZ NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_mileage_segments_vehicle
		ON mileage_segments (organization_id, vehicle_id, sequence);`,
	`CREATE TABLE IF NOT EXISTS fuel_efficiency_baselines (
		organization_id UUID NOT NULL,
		vehicle_id UUID NOT NULL,
		baseline_kmpl NUMERIC(8,2) NOT NULL,
		std_dev_kmpl NUMERIC(8,3) NOT NULL,
		sample_size INTEGER NOT NULL,
		confidence NUMERIC(4,3) NOT NULL,
		tolerance_low NUMERIC(8,2) NOT NULL,
		tolerance_high NUMERIC(8,2) NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (organization_id, vehicle_id),
		CONSTRAINT chk_baseline_confidence CHECK (confidence >= 0 AND confidence <= 1)
	);`,
	`CREATE TABLE IF NOT EXISTS audit_trail_entries (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		organization_id UUID NOT NULL,
		operation_type VARCHAR(48) NOT NULL,
		category VARCHAR(32) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id VARCHAR(64) NOT NULL,
		actor_id UUID,
		severity VARCHAR(16) NOT NULL,
		decision VARCHAR(16) NOT NULL,
		reason TEXT,
		payload JSONB,
		tags TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_audit_severity CHECK (severity IN ('info', 'warning', 'error', 'critical')),
		CONSTRAINT chk_audit_decision CHECK (decision IN ('accepted', 'rejected', 'recorded'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_trail_entries (organization_id, entity_type, entity_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_org_created
		ON audit_trail_entries (organization_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_severity
		ON audit_trail_entries (organization_id, severity, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_audit_tags ON audit_trail_entries USING GIN (tags);`,
	`CREATE OR REPLACE FUNCTION set_row_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`CREATE OR REPLACE FUNCTION reject_audit_mutation()
	RETURNS TRIGGER AS $$
	BEGIN
		RAISE EXCEPTION 'audit trail entries are immutable';
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_trips_updated_at') THEN
			CREATE TRIGGER trg_trips_updated_at
				BEFORE UPDATE ON trips
				FOR EACH ROW
				EXECUTE PROCEDURE set_row_updated_at();
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_audit_trail_immutable') THEN
			CREATE TRIGGER trg_audit_trail_immutable
				BEFORE UPDATE OR DELETE ON audit_trail_entries
				FOR EACH ROW
				EXECUTE PROCEDURE reject_audit_mutation();
		END IF;
	END
	$$;`,
}

// runMigrations applies every statement in one transaction; each one is idempotent.
func runMigrations(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	started := time.Now()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, stmt := range migrationStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("migration %d failed: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().
		Int("statements", len(migrationStatements)).
		Dur("took", time.Since(started)).
		Msg("schema up to date")
	return nil
}
