package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/rbac"
)

// LinkKind tags what an activity entry points at.
type LinkKind string

// Link kinds. Each maps to exactly one module.
const (
	LinkEntity     LinkKind = "entity"
	LinkConceptArt LinkKind = "concept-art"
	LinkLore       LinkKind = "lore"
	LinkThought    LinkKind = "thought"
	LinkOnboarding LinkKind = "onboarding"
)

var kindModules = map[LinkKind]rbac.Module{
	LinkEntity:     rbac.ModuleEntities,
	LinkConceptArt: rbac.ModuleConceptArt,
	LinkLore:       rbac.ModuleLore,
	LinkThought:    rbac.ModuleThoughts,
	LinkOnboarding: rbac.ModuleOnboarding,
}

// Link is a typed reference to the record an entry is about.
type Link struct {
	Kind LinkKind `json:"kind"`
	ID   string   `json:"id"`
}

// LinkFor builds the link for a record in module. Modules without records (the
// dashboard) have no link kind.
func LinkFor(module rbac.Module, id string) (Link, bool) {
	for kind, m := range kindModules {
		if m == module {
			return Link{Kind: kind, ID: id}, true
		}
	}
	return Link{}, false
}

// Module returns the module the link lives in.
func (l Link) Module() (rbac.Module, bool) {
	m, ok := kindModules[l.Kind]
	return m, ok
}

// Valid reports whether the link has a known kind and an id.
func (l Link) Valid() bool {
	_, ok := kindModules[l.Kind]
	return ok && l.ID != ""
}

// Path is the page URL for the linked record.
func (l Link) Path() string {
	m, ok := l.Module()
	if !ok {
		return rbac.ModuleDashboard.LandingPath()
	}
	return m.LandingPath() + "#" + l.ID
}

// Actions recorded in the feed.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Entry is one line of the activity feed.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	ActorID   int64     `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    string    `json:"action"`
	Link      Link      `json:"link"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}
