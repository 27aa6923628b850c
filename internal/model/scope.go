package model

import "github.com/google/uuid"

// Scope restricts reads to one organization and, optionally, one vehicle or driver.
// Trips of different organizations are never compared.
type Scope struct {
	OrganizationID uuid.UUID
	VehicleID      *uuid.UUID
	DriverID       *uuid.UUID
}

func OrganizationScope(orgID uuid.UUID) Scope {
	return Scope{OrganizationID: orgID}
}

func (s Scope) ForVehicle(id uuid.UUID) Scope {
	s.VehicleID = &id
	return s
}

func (s Scope) ForDriver(id uuid.UUID) Scope {
	s.DriverID = &id
	return s
}

func (s Scope) Allows(trip Trip) bool {
	if trip.OrganizationID != s.OrganizationID {
		return false
	}
	if s.VehicleID != nil && trip.VehicleID != *s.VehicleID {
		return false
	}
	if s.DriverID != nil && !trip.HasDriver(*s.DriverID) {
		return false
	}
	return true
}
