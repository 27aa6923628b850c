package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeLockKeys(t *testing.T) {
	org := uuid.MustParse("0b6a9f0e-1111-4c8e-9d55-000000000001")
	vehicle := uuid.MustParse("5e0d7c1a-2222-4f0a-8c11-000000000001")
	driver := uuid.MustParse("9a3b2c1d-3333-4b7e-a0f2-000000000001")

	keys := NormalizeLockKeys([]string{
		VehicleLockKey(org, vehicle),
		"",
		DriverLockKey(org, driver),
		VehicleLockKey(org, vehicle),
	})

	assert.Equal(t, []string{
		"driver:" + org.String() + ":" + driver.String(),
		"vehicle:" + org.String() + ":" + vehicle.String(),
	}, keys)
	assert.Empty(t, NormalizeLockKeys(nil))
}

func TestEffectiveLimit(t *testing.T) {
	assert.Equal(t, 200, EffectiveLimit(0))
	assert.Equal(t, 200, EffectiveLimit(-5))
	assert.Equal(t, 25, EffectiveLimit(25))
	assert.Equal(t, 1000, EffectiveLimit(5000))
}
