package rbac

import "strings"

// Role identifies the baseline capabilities of a user account.
type Role string

// Studio roles, most senior first.
const (
	RoleAdmin             Role = "ADMIN"
	RoleExecutiveProducer Role = "EXECUTIVE_PRODUCER"
	RoleCreativeDirector  Role = "CREATIVE_DIRECTOR"
	RoleConceptArtist     Role = "CONCEPT_ARTIST"
	RoleArtist            Role = "ARTIST"
	RoleWriter            Role = "WRITER"
	RoleViewer            Role = "VIEWER"
)

// Module identifies a protected functional area of the tracker.
type Module string

// Protected modules.
const (
	ModuleDashboard  Module = "dashboard"
	ModuleOnboarding Module = "onboarding"
	ModuleEntities   Module = "entities"
	ModuleThoughts   Module = "thoughts"
	ModuleConceptArt Module = "concept-art"
	ModuleLore       Module = "lore"
)

// Action is the kind of access requested from the guard.
type Action string

// Guarded actions.
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

var allRoles = []Role{
	RoleAdmin,
	RoleExecutiveProducer,
	RoleCreativeDirector,
	RoleConceptArtist,
	RoleArtist,
	RoleWriter,
	RoleViewer,
}

var allModules = []Module{
	ModuleDashboard,
	ModuleOnboarding,
	ModuleEntities,
	ModuleThoughts,
	ModuleConceptArt,
	ModuleLore,
}

// Seniority hint only. Access decisions never read these values.
var roleLevels = map[Role]int{
	RoleAdmin:             100,
	RoleExecutiveProducer: 80,
	RoleCreativeDirector:  70,
	RoleConceptArtist:     40,
	RoleArtist:            30,
	RoleWriter:            30,
	RoleViewer:            10,
}

// Roles returns every defined role, most senior first.
func Roles() []Role {
	return append([]Role(nil), allRoles...)
}

// Modules returns every protected module.
func Modules() []Module {
	return append([]Module(nil), allModules...)
}

// ParseRole converts a stored role name into a Role.
func ParseRole(raw string) (Role, bool) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(raw)))
	for _, r := range allRoles {
		if r == candidate {
			return r, true
		}
	}
	return "", false
}

// ParseModule converts a path segment into a Module.
func ParseModule(raw string) (Module, bool) {
	candidate := Module(strings.ToLower(strings.TrimSpace(raw)))
	for _, m := range allModules {
		if m == candidate {
			return m, true
		}
	}
	return "", false
}

// Level returns the seniority ordinal of the role, or 0 for an unknown role.
func (r Role) Level() int {
	return roleLevels[r]
}

// Outranks reports whether r is strictly more senior than other.
func (r Role) Outranks(other Role) bool {
	return r.Level() > other.Level()
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

func (m Module) String() string {
	return string(m)
}

// LandingPath is the page a module's guard falls back to.
func (m Module) LandingPath() string {
	if m == ModuleDashboard {
		return "/dashboard"
	}
	return "/m/" + string(m)
}
