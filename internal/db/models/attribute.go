// Package models - attribute.go defines the Attribute model: a hierarchical,
// typed key/value record. Values are stored as text; the declared data type
// drives validation on write and typed rendering on read.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/application-catalog/application-catalog/internal/validation"
)

// Attribute represents a typed attribute in the catalog tree
type Attribute struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Slug        string          `json:"slug" db:"slug"`
	Name        string          `json:"name" db:"name"`
	Value       string          `json:"value" db:"value"`
	DataType    string          `json:"data_type" db:"data_type"` // string, integer, float, boolean, date, datetime, json
	Description string          `json:"description" db:"description"`
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
func (a *Attribute) IndentedName() string {
	return indentedName(a.Name, a.TreeDepth)
}

// ParentDisplay returns the parent name, or "-" for root attributes
func (a *Attribute) ParentDisplay() string {
	return parentNameOrDash(a.ParentName)
}

// TreeInfo renders the tree position summary for detail pages
func (a *Attribute) TreeInfo(pathNames []string) string {
	return treeInfoLine(a.TreeDepth, pathNames, a.TreeLeft, a.TreeRight)
}

// TypedValue converts the stored text value into its natural Go type for
// JSON rendering. Empty values come back nil.
func (a *Attribute) TypedValue() (interface{}, error) {
	return validation.TypedValue(a.DataType, a.Value)
}

// BoolValue interprets the stored value as a boolean; only meaningful for
// boolean attributes, where true, 1, yes and on count as true.
func (a *Attribute) BoolValue() bool {
	return validation.TruthyValue(a.Value)
}

// CreateAttributeRequest represents the request to create an attribute
type CreateAttributeRequest struct {
	Name        string                 `json:"name" binding:"required,min=1,max=255"`
	Slug        string                 `json:"slug,omitempty"` // generated from name when empty
	Value       string                 `json:"value,omitempty"`
	DataType    string                 `json:"data_type,omitempty"` // defaults to string
	Description string                 `json:"description,omitempty"`
	IsActive    *bool                  `json:"is_active,omitempty"` // defaults to true
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ParentID    *uuid.UUID             `json:"parent_id,omitempty"`
}

// UpdateAttributeRequest represents the request to update an attribute.
// Nil fields are left unchanged.
type UpdateAttributeRequest struct {
	Name        *string                `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Slug        *string                `json:"slug,omitempty"`
	Value       *string                `json:"value,omitempty"`
	DataType    *string                `json:"data_type,omitempty"`
	Description *string                `json:"description,omitempty"`
	IsActive    *bool                  `json:"is_active,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	ParentID    *uuid.UUID             `json:"parent_id,omitempty"`
	ClearParent bool                   `json:"clear_parent,omitempty"`
}
