// Package models - audit_log.go defines the AuditLog model for recording
// catalog mutations and admin actions, capturing actor, action, affected
// entity, client IP, and arbitrary metadata.
package models

import "time"

// AuditLog represents an audit log entry for tracking catalog changes
type AuditLog struct {
	ID           string                 `json:"id"`
	UserID       *string                `json:"user_id,omitempty"` // nullable for anonymous web actions
	Action       string                 `json:"action"`            // "application.create", "attribute.update", "auth.login"
	ResourceType string                 `json:"resource_type"`     // "application", "attribute", "organisation", "admin_user"
	ResourceID   *string                `json:"resource_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"` // JSONB: additional context
	IPAddress    *string                `json:"ip_address,omitempty"`
	StatusCode   int                    `json:"status_code"`
	CreatedAt    time.Time              `json:"created_at"`
}
