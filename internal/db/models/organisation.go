// Package models - organisation.go defines the Organisation model: a
// hierarchical business unit with contact details that applications link to
// through a join table.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Organisation represents an organisation in the catalog tree
type Organisation struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Slug        string          `json:"slug" db:"slug"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Code        string          `json:"code" db:"code"` // short code or abbreviation
	Email       string          `json:"email" db:"email"`
	Phone       string          `json:"phone" db:"phone"`
	Address     string          `json:"address" db:"address"`
	Website     string          `json:"website" db:"website"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	Metadata    json.RawMessage `json:"metadata,omitempty" db:"metadata"` // JSONB
	ParentID    *uuid.UUID      `json:"parent_id,omitempty" db:"parent_id"`
	TreeColumns
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// ParentName is populated by list and detail queries via a self join
	ParentName *string `json:"parent_name,omitempty" db:"parent_name"`
}

// IndentedName returns the name prefixed with one em dash per depth level
func (o *Organisation) IndentedName() string {
	return indentedName(o.Name, o.TreeDepth)
}

// ParentDisplay returns the parent name, or "-" for root organisations
func (o *Organisation) ParentDisplay() string {
	return parentNameOrDash(o.ParentName)
}

// TreeInfo renders the tree position summary for detail pages
func (o *Organisation) TreeInfo(pathNames []string) string {
	return treeInfoLine(o.TreeDepth, pathNames, o.TreeLeft, o.TreeRight)
}

// CreateOrganisationRequest represents the request to create an organisation
type CreateOrganisationRequest struct {
	Name        string                 `json:"name" binding:"required,min=1,max=255"`
	Slug        string                 `json:"slug,omitempty"` // generated from name when empty
	Description string                 `json:"description,omitempty"`
	Code        string                 `json:"code,omitempty" binding:"omitempty,max=50"`
	Email       string                 `json:"email,omitempty" binding:"omitempty,email"`
	Phone       string                 `json:"phone,omitempty" binding:"omitempty,max=50"`
	Address     string                 `json:"address,omitempty"`
	Website     string                 `json:"website,omitempty" binding:"omitempty,url"`
	IsActive    *bool                  `json:"is_active,omitempty"` // defaults to true
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ParentID    *uuid.UUID             `json:"parent_id,omitempty"`
}

// UpdateOrganisationRequest represents the request to update an organisation.
// Nil fields are left unchanged.
type UpdateOrganisationRequest struct {
	Name        *string                `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug        *string                `json:"slug,omitempty"`
	Description *string                `json:"description,omitempty"`
	Code        *string                `json:"code,omitempty" binding:"omitempty,max=50"`
	Email       *string                `json:"email,omitempty" binding:"omitempty,email"`
	Phone       *string                `json:"phone,omitempty" binding:"omitempty,max=50"`
	Address     *string                `json:"address,omitempty"`
	Website     *string                `json:"website,omitempty" binding:"omitempty,url"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ParentID    *uuid.UUID             `json:"parent_id,omitempty"`
	ClearParent bool                   `json:"clear_parent,omitempty"`
}
