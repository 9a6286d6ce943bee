package rbac

import (
	"errors"
	"fmt"
)

// ErrMatrixIncomplete is returned by Validate when the tables do not cover the role set.
var ErrMatrixIncomplete = errors.New("rbac: permission matrix incomplete")

type moduleSet map[Module]struct{}

func setOf(modules ...Module) moduleSet {
	set := make(moduleSet, len(modules))
	for _, m := range modules {
		set[m] = struct{}{}
	}
	return set
}

// View and edit are maintained independently. Neither is derived from role level.
var (
	viewMatrix = map[Role]moduleSet{
		RoleAdmin:             setOf(allModules...),
		RoleExecutiveProducer: setOf(allModules...),
		RoleCreativeDirector:  setOf(allModules...),
		RoleConceptArtist:     setOf(ModuleDashboard, ModuleOnboarding, ModuleEntities, ModuleThoughts, ModuleConceptArt, ModuleLore),
		RoleArtist:            setOf(ModuleDashboard, ModuleOnboarding, ModuleEntities, ModuleThoughts, ModuleConceptArt),
		RoleWriter:            setOf(ModuleDashboard, ModuleOnboarding, ModuleEntities, ModuleThoughts, ModuleLore),
		RoleViewer:            setOf(ModuleDashboard, ModuleOnboarding, ModuleEntities),
	}

	editMatrix = map[Role]moduleSet{
		RoleAdmin:             setOf(allModules...),
		RoleExecutiveProducer: setOf(allModules...),
		RoleCreativeDirector:  setOf(allModules...),
		RoleConceptArtist:     setOf(ModuleThoughts, ModuleConceptArt),
		RoleArtist:            setOf(ModuleConceptArt),
		RoleWriter:            setOf(ModuleThoughts, ModuleLore),
		RoleViewer:            setOf(),
	}
)

// CanView reports whether the role may view the module. Unknown roles get nothing.
func CanView(role Role, module Module) bool {
	_, ok := viewMatrix[role][module]
	return ok
}

// CanEdit reports whether the role may create or update records in the module.
func CanEdit(role Role, module Module) bool {
	_, ok := editMatrix[role][module]
	return ok
}

// CanDelete reports whether the role may perform destructive operations. Delete is a
// single global capability; the module is irrelevant.
func CanDelete(role Role) bool {
	return role == RoleAdmin
}

// Allowed dispatches on action.
func Allowed(role Role, module Module, action Action) bool {
	switch action {
	case ActionView:
		return CanView(role, module)
	case ActionEdit:
		return CanEdit(role, module)
	case ActionDelete:
		return CanDelete(role)
	default:
		return false
	}
}

// ViewableModules lists the modules the role may view, in declaration order.
func ViewableModules(role Role) []Module {
	modules := make([]Module, 0, len(allModules))
	for _, m := range allModules {
		if CanView(role, m) {
			modules = append(modules, m)
		}
	}
	return modules
}

// Validate checks that every role has a level and a row (possibly empty) in both
// matrices, and that no row names a module outside the closed set. Call once at startup.
func Validate() error {
	for _, r := range allRoles {
		if _, ok := roleLevels[r]; !ok {
			return fmt.Errorf("%w: role %s has no level", ErrMatrixIncomplete, r)
		}
		if _, ok := viewMatrix[r]; !ok {
			return fmt.Errorf("%w: role %s missing from view matrix", ErrMatrixIncomplete, r)
		}
		if _, ok := editMatrix[r]; !ok {
			return fmt.Errorf("%w: role %s missing from edit matrix", ErrMatrixIncomplete, r)
		}
	}
	for _, table := range []map[Role]moduleSet{viewMatrix, editMatrix} {
		for r, set := range table {
			for m := range set {
				if _, ok := ParseModule(string(m)); !ok {
					return fmt.Errorf("%w: role %s references unknown module %q", ErrMatrixIncomplete, r, m)
				}
			}
		}
	}
	return nil
}

// ViewableModuleNames is ViewableModules as strings, for templates and JSON.
func ViewableModuleNames(role Role) []string {
	modules := ViewableModules(role)
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.String()
	}
	return names
}
