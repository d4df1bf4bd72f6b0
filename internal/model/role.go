package model

import "strings"

// Role is the privilege level of the current actor
type Role string

const (
	RoleGuest         Role = "guest"
	RoleTeacher       Role = "teacher"
	RoleAdministrator Role = "admin"
)

// Roles lists all roles in ascending privilege order
var Roles = []Role{RoleGuest, RoleTeacher, RoleAdministrator}

// Rank returns the privilege rank of the role. Unknown roles rank as Guest.
func (r Role) Rank() int {
	switch r {
	case RoleTeacher:
		return 1
	case RoleAdministrator:
		return 2
	default:
		return 0
	}
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleTeacher, RoleAdministrator:
		return true
	}
	return false
}

// ParseRole maps a backend role string onto a Role.
// Anything unrecognised falls back to Guest (least privilege).
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin", "administrator":
		return RoleAdministrator
	case "teacher", "lehrer":
		return RoleTeacher
	default:
		return RoleGuest
	}
}

func (r Role) String() string {
	return string(r)
}
