package content

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sapients/tracker/internal/rbac"
)

// ErrUnknownModule is returned for modules that hold no records.
var ErrUnknownModule = errors.New("content: unknown module")

// Item is one record in a content module.
type Item struct {
	ID        uuid.UUID   `json:"id"`
	Module    rbac.Module `json:"module"`
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	CreatedBy int64       `json:"created_by"`
	UpdatedBy int64       `json:"updated_by"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Version is a snapshot of an item prior to an edit.
type Version struct {
	ItemID   uuid.UUID `json:"item_id"`
	Version  int       `json:"version"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	EditedBy int64     `json:"edited_by"`
	EditedAt time.Time `json:"edited_at"`
}

// ItemInput is the writable part of an item.
type ItemInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=20000"`
}

// ListFilter narrows a module listing.
type ListFilter struct {
	Page    int
	PerPage int
}

// Modules lists the modules that hold records. The dashboard is an aggregate view.
func Modules() []rbac.Module {
	var modules []rbac.Module
	for _, m := range rbac.Modules() {
		if m != rbac.ModuleDashboard {
			modules = append(modules, m)
		}
	}
	return modules
}

// IsContentModule reports whether m holds records.
func IsContentModule(m rbac.Module) bool {
	if _, ok := rbac.ParseModule(string(m)); !ok {
		return false
	}
	return m != rbac.ModuleDashboard
}

// Versioned reports whether edits in m keep history.
func Versioned(m rbac.Module) bool {
	return m == rbac.ModuleLore
}
