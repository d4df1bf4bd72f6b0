package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/teachkit/internal/model"
)

func TestEditorOnlyForTeacherAndAdministrator(t *testing.T) {
	for _, role := range model.Roles {
		want := role == model.RoleTeacher || role == model.RoleAdministrator
		assert.Equal(t, want, HasCapability(role, model.CapEditor), "role %s", role)
	}
}

func TestCapabilitySetsAreMonotonic(t *testing.T) {
	for i := 1; i < len(model.Roles); i++ {
		lower := For(model.Roles[i-1])
		higher := For(model.Roles[i])
		assert.True(t, higher.Contains(lower), "%s should contain %s", model.Roles[i], model.Roles[i-1])
	}
}

func TestGuestCapabilities(t *testing.T) {
	assert.Equal(t, []model.Capability{model.CapFeedback, model.CapPlay}, For(model.RoleGuest).List())
}

func TestAdministratorCapabilities(t *testing.T) {
	set := For(model.RoleAdministrator)
	for _, c := range model.Capabilities {
		assert.True(t, set.Has(c), "admin should have %s", c)
	}
}

func TestUnknownRoleResolvesAsGuest(t *testing.T) {
	assert.Equal(t, For(model.RoleGuest), For(model.Role("superuser")))
	assert.False(t, HasCapability(model.Role("superuser"), model.CapStats))
	assert.True(t, HasCapability(model.Role(""), model.CapPlay))
}

func TestAlwaysIsGrantedToEveryRole(t *testing.T) {
	for _, role := range model.Roles {
		assert.True(t, HasCapability(role, model.Always))
	}
}
