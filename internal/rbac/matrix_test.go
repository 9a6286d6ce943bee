package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMatrix(t *testing.T) {
	require.NoError(t, Validate())
}

func TestEditImpliesView(t *testing.T) {
	for _, role := range Roles() {
		for _, module := range Modules() {
			if CanEdit(role, module) {
				assert.Truef(t, CanView(role, module), "%s can edit %s without view", role, module)
			}
		}
	}
}

func TestOnlyAdminCanDelete(t *testing.T) {
	for _, role := range Roles() {
		assert.Equal(t, role == RoleAdmin, CanDelete(role), role.String())
	}
	assert.False(t, CanDelete(Role("SUPERUSER")))
}

func TestAdminDeleteIgnoresModule(t *testing.T) {
	for _, module := range Modules() {
		assert.True(t, Allowed(RoleAdmin, module, ActionDelete), module.String())
		assert.False(t, Allowed(RoleCreativeDirector, module, ActionDelete), module.String())
	}
}

func TestWriterScenario(t *testing.T) {
	assert.True(t, CanView(RoleWriter, ModuleEntities))
	assert.False(t, CanEdit(RoleWriter, ModuleEntities))
	assert.True(t, CanEdit(RoleWriter, ModuleLore))
}

func TestViewerScenario(t *testing.T) {
	assert.False(t, CanView(RoleViewer, ModuleThoughts))
	assert.Equal(t, []Module{ModuleDashboard, ModuleOnboarding, ModuleEntities}, ViewableModules(RoleViewer))
	for _, module := range Modules() {
		assert.False(t, CanEdit(RoleViewer, module))
	}
}

func TestConceptArtEditors(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleExecutiveProducer, RoleCreativeDirector, RoleConceptArtist, RoleArtist} {
		assert.True(t, CanEdit(role, ModuleConceptArt), role.String())
	}
	assert.False(t, CanEdit(RoleWriter, ModuleConceptArt))
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	unknown := Role("INTERN")
	for _, module := range Modules() {
		assert.False(t, CanView(unknown, module))
		assert.False(t, CanEdit(unknown, module))
	}
	assert.Zero(t, unknown.Level())
	assert.False(t, unknown.Valid())
}

func TestUnknownActionDenied(t *testing.T) {
	assert.False(t, Allowed(RoleAdmin, ModuleLore, Action("publish")))
}

func TestRoleLevels(t *testing.T) {
	for _, role := range Roles() {
		assert.Positive(t, role.Level(), role.String())
	}
	assert.True(t, RoleAdmin.Outranks(RoleExecutiveProducer))
	assert.True(t, RoleCreativeDirector.Outranks(RoleConceptArtist))
	assert.False(t, RoleWriter.Outranks(RoleArtist))
	assert.False(t, RoleViewer.Outranks(RoleWriter))
}

func TestParseRoleAndModule(t *testing.T) {
	role, ok := ParseRole(" writer ")
	require.True(t, ok)
	assert.Equal(t, RoleWriter, role)

	_, ok = ParseRole("root")
	assert.False(t, ok)

	module, ok := ParseModule("Concept-Art")
	require.True(t, ok)
	assert.Equal(t, ModuleConceptArt, module)

	_, ok = ParseModule("billing")
	assert.False(t, ok)
}

func TestLandingPath(t *testing.T) {
	assert.Equal(t, "/dashboard", ModuleDashboard.LandingPath())
	assert.Equal(t, "/m/lore", ModuleLore.LandingPath())
}

func TestDeleteGate(t *testing.T) {
	gate := NewDeleteGate("tear-it-down")
	assert.True(t, gate.Verify("tear-it-down"))
	assert.False(t, gate.Verify("tear-it-down "))
	assert.False(t, gate.Verify("TEAR-IT-DOWN"))
	assert.False(t, gate.Verify(""))

	empty := NewDeleteGate("")
	assert.False(t, empty.Verify(""))

	var nilGate *DeleteGate
	assert.False(t, nilGate.Verify("tear-it-down"))
}
