// Package capability maps roles onto the set of actions they may perform.
// The mapping is static, deterministic and fail-closed: an unknown role
// resolves exactly like Guest.
package capability

import (
	"sort"

	"github.com/mcoot/teachkit/internal/model"
)

// Set is an immutable set of capabilities
type Set map[model.Capability]struct{}

var (
	guestCaps   = newSet(model.CapPlay, model.CapFeedback)
	teacherCaps = guestCaps.with(model.CapEditor)
	adminCaps   = teacherCaps.with(model.CapStats, model.CapUserManagement)
)

func newSet(caps ...model.Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s Set) with(caps ...model.Capability) Set {
	out := make(Set, len(s)+len(caps))
	for c := range s {
		out[c] = struct{}{}
	}
	for _, c := range caps {
		out[c] = struct{}{}
	}
	return out
}

// For returns the capability set granted to a role
func For(role model.Role) Set {
	switch role {
	case model.RoleAdministrator:
		return adminCaps
	case model.RoleTeacher:
		return teacherCaps
	default:
		return guestCaps
	}
}

// HasCapability reports whether role may perform action.
// model.Always is granted to every role.
func HasCapability(role model.Role, action model.Capability) bool {
	if action == model.Always {
		return true
	}
	return For(role).Has(action)
}

// Has reports whether the set contains c
func (s Set) Has(c model.Capability) bool {
	_, ok := s[c]
	return ok
}

// Contains reports whether every capability of other is also in s
func (s Set) Contains(other Set) bool {
	for c := range other {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// List returns the capabilities sorted by name
func (s Set) List() []model.Capability {
	out := make([]model.Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
