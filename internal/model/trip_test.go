package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTripSameDriver(t *testing.T) {
	d1, d2 := uuid.New(), uuid.New()
	with := func(id *uuid.UUID) Trip { return Trip{ID: uuid.New(), DriverID: id} }

	assert.True(t, with(&d1).SameDriver(with(&d1)))
	assert.False(t, with(&d1).SameDriver(with(&d2)))
	assert.False(t, with(&d1).SameDriver(with(nil)))
	assert.False(t, with(nil).SameDriver(with(&d1)))
	assert.False(t, with(nil).SameDriver(with(nil)))
}
