package domain

import (
	"fmt"
	"strings"
)

// Role is the account role stored in users.role.
type Role string

const (
	RoleOwner   Role = "Owner"
	RoleManager Role = "Manager"
	RoleTenant  Role = "Tenant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleTenant:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts any casing ("owner", "OWNER").
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return RoleOwner, nil
	case "manager":
		return RoleManager, nil
	case "tenant":
		return RoleTenant, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// ApartmentStatus is stored in apartments.status.
type ApartmentStatus string

const (
	StatusAvailable        ApartmentStatus = "Available"
	StatusRented           ApartmentStatus = "Rented"
	StatusUnderMaintenance ApartmentStatus = "UnderMaintenance"
)

func (s ApartmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusUnderMaintenance:
		return true
	}
	return false
}

func ParseApartmentStatus(s string) (ApartmentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return StatusAvailable, nil
	case "rented":
		return StatusRented, nil
	case "undermaintenance", "under_maintenance", "maintenance":
		return StatusUnderMaintenance, nil
	}
	return "", fmt.Errorf("%w: unknown apartment status %q", ErrValidation, s)
}
