package dataroom

import (
	"time"
)

// RootName labels the implicit root entry of every breadcrumb trail
const RootName = "Data Room"

type Folder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"` // NULL = root level
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Breadcrumb is one step of the root-to-folder navigation trail.
// The root entry has a nil ID.
type Breadcrumb struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

// BuildBreadcrumbs turns a root-to-node ancestor chain into a breadcrumb trail
// that starts with the root entry.
func BuildBreadcrumbs(chain []Folder) []Breadcrumb {
	crumbs := make([]Breadcrumb, 0, len(chain)+1)
	crumbs = append(crumbs, Breadcrumb{ID: nil, Name: RootName})
	for i := range chain {
		id := chain[i].ID
		crumbs = append(crumbs, Breadcrumb{ID: &id, Name: chain[i].Name})
	}
	return crumbs
}
