// Package models - user.go defines the AdminUser model for accounts that can
// sign in to the admin API, along with the login request/response shapes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin user roles
const (
	RoleAdmin  = "admin"  // full read/write access
	RoleViewer = "viewer" // read-only access
)

// AdminUser represents an account with access to the admin API
type AdminUser struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         string     `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// CanWrite returns true if the user's role permits mutating requests
func (u *AdminUser) CanWrite() bool {
	return u.Role == RoleAdmin
}

// LoginRequest represents the credentials posted to the admin login endpoint
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued token and its expiry
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// CreateAdminUserRequest represents the request to create an admin user
type CreateAdminUserRequest struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Email    string `json:"email,omitempty" binding:"omitempty,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role,omitempty"` // defaults to admin
}
