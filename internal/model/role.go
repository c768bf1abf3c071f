package model

import "strings"

type Role string

const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

// Rank orders roles student < teacher < coordinator < admin. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleStudent:
		return 1
	case RoleTeacher:
		return 2
	case RoleCoordinator:
		return 3
	case RoleAdmin:
		return 4
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

// In reports explicit membership. It does not apply the rank ordering.
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func ParseRole(value string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(value)))
	return role, role.Valid()
}

type AccessStatus string

const (
	StatusActive    AccessStatus = "active"
	StatusInactive  AccessStatus = "inactive"
	StatusSuspended AccessStatus = "suspended"
)

func (s AccessStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	default:
		return false
	}
}

func ParseAccessStatus(value string) (AccessStatus, bool) {
	status := AccessStatus(strings.TrimSpace(strings.ToLower(value)))
	return status, status.Valid()
}
