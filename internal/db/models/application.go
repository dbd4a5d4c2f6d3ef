// Package models - application.go defines the Application model, the central
// catalog entity. Applications form a tree via a parent self-reference and
// link to attributes and organisations through join tables.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Application represents an application in the catalog
type Application struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Slug        string          `json:"slug" db:"slug"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	ParentID    *uuid.UUID      `json:"parent_id,omitempty" db:"parent_id"`
	Properties  json.RawMessage `json:"properties,omitempty" db:"properties"` // JSONB: extensibility bag
	TreeColumns
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ParentName is populated by list and detail queries via a self join;
	// it is never written back.
	ParentName *string `json:"parent_name,omitempty" db:"parent_name"`
}

// IndentedName returns the name prefixed with one em dash per depth level
func (a *Application) IndentedName() string {
	return indentedName(a.Name, a.TreeDepth)
}

// ParentDisplay returns the parent name, or "-" for root applications
func (a *Application) ParentDisplay() string {
	return parentNameOrDash(a.ParentName)
}

// TreeInfo renders the tree position summary for detail pages. pathNames are
// ancestor names from the root down, ending with this application's name.
func (a *Application) TreeInfo(pathNames []string) string {
	return treeInfoLine(a.TreeDepth, pathNames, a.TreeLeft, a.TreeRight)
}

// ApplicationDetail bundles an application with its linked records for the
// detail page and admin API reads.
type ApplicationDetail struct {
	Application
	Attributes    []Attribute    `json:"attributes"`
	Organisations []Organisation `json:"organisations"`
	FullPath      string         `json:"full_path"` // dotted ancestor slugs, e.g. "app-a.app-b"
	PathNames     []string       `json:"-"`         // ancestor names for TreeInfo rendering
}

// CreateApplicationRequest represents the request to create an application
type CreateApplicationRequest struct {
	Name            string                 `json:"name" binding:"required,min=1,max=255"`
	Slug            string                 `json:"slug,omitempty"` // generated from name when empty
	Description     string                 `json:"description,omitempty"`
	ParentID        *uuid.UUID             `json:"parent_id,omitempty"`
	Properties      map[string]interface{} `json:"properties,omitempty"`
	AttributeIDs    []uuid.UUID            `json:"attribute_ids,omitempty"`
	OrganisationIDs []uuid.UUID            `json:"organisation_ids,omitempty"`
}

// UpdateApplicationRequest represents the request to update an application.
// Nil fields are left unchanged; nil link slices leave links untouched while
// empty slices clear them.
type UpdateApplicationRequest struct {
	Name            *string                `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug            *string                `json:"slug,omitempty"`
	Description     *string                `json:"description,omitempty"`
	ParentID        *uuid.UUID             `json:"parent_id,omitempty"`
	ClearParent     bool                   `json:"clear_parent,omitempty"` // detach from parent, making this a root
	Properties      map[string]interface{} `json:"properties,omitempty"`
	AttributeIDs    []uuid.UUID            `json:"attribute_ids,omitempty"`
	OrganisationIDs []uuid.UUID            `json:"organisation_ids,omitempty"`
}
