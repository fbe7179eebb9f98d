package model

import "time"

// Folder is an organizational node in a per-user folder tree.
//
// ParentID is nil for root-level folders. The tree never crosses users:
// a folder's parent always belongs to the same UserID.
//
// Sibling names are unique — the store enforces UNIQUE(user_id, parent_id,
// name) so two concurrent creates of the same name cannot both commit.
type Folder struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`

	// Children is populated only by tree-shaped listings; it is not a
	// stored column.
	Children []*Folder `json:"children,omitempty"`
}
