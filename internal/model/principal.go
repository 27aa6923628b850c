package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleFleetAdmin   UserRole = "FLEET_ADMIN"
	UserRoleFleetManager UserRole = "FLEET_MANAGER"
	UserRoleDispatcher   UserRole = "DISPATCHER"
	UserRoleAuditor      UserRole = "AUDITOR"
	UserRoleDriver       UserRole = "DRIVER"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleFleetAdmin, UserRoleFleetManager, UserRoleDispatcher, UserRoleAuditor, UserRoleDriver:
		return true
	}
	return false
}

type Principal struct {
	UserID   uuid.UUID
	OrgID    uuid.UUID
	Role     UserRole
	DriverID *uuid.UUID
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleFleetAdmin
}

func (p Principal) IsManager() bool {
	return p.Role == UserRoleFleetManager
}

func (p Principal) IsDispatcher() bool {
	return p.Role == UserRoleDispatcher
}

func (p Principal) IsAuditor() bool {
	return p.Role == UserRoleAuditor
}

func (p Principal) IsDriver() bool {
	return p.Role == UserRoleDriver
}

// CanWriteTrips does not check trip ownership; drivers are further restricted to their own trips.
func (p Principal) CanWriteTrips() bool {
	return p.IsAdmin() || p.IsManager() || p.IsDispatcher() || p.IsDriver()
}

func (p Principal) CanMaintainChains() bool {
	return p.IsAdmin() || p.IsManager()
}

func (p Principal) CanReadAudit() bool {
	return p.IsAdmin() || p.IsManager() || p.IsAuditor()
}
