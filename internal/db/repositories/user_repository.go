// user_repository.go implements AdminUserRepository, providing database
// queries for the accounts that can sign in to the admin API.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/models"
)

// AdminUserRepository handles admin user database operations
type AdminUserRepository struct {
	db *sqlx.DB
}

// NewAdminUserRepository creates a new AdminUserRepository
func NewAdminUserRepository(db *sqlx.DB) *AdminUserRepository {
	return &AdminUserRepository{db: db}
}

const selectAdminUser = `
	SELECT id, username, email, password_hash, role, is_active, last_login_at, created_at, updated_at
	FROM admin_users
`

// Create inserts a new admin user. The caller supplies the bcrypt hash.
func (r *AdminUserRepository) Create(ctx context.Context, user *models.AdminUser) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleAdmin
	}

	query := `
		INSERT INTO admin_users (id, username, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, user.Username)
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	return nil
}

// GetByID retrieves an admin user by ID, or nil if not found
func (r *AdminUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminUser, error) {
	query := selectAdminUser + ` WHERE id = $1`

	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user: %w", err)
	}

	return &user, nil
}

// GetByUsername retrieves an admin user by username, or nil if not found
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	query := selectAdminUser + ` WHERE username = $1`

	var user models.AdminUser
	err := r.db.GetContext(ctx, &user, query, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin user by username: %w", err)
	}

	return &user, nil
}

// List retrieves all admin users, newest first
func (r *AdminUserRepository) List(ctx context.Context) ([]models.AdminUser, error) {
	query := selectAdminUser + ` ORDER BY created_at DESC`

	var users []models.AdminUser
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list admin users: %w", err)
	}

	return users, nil
}

// Update rewrites an admin user's mutable fields
func (r *AdminUserRepository) Update(ctx context.Context, user *models.AdminUser) error {
	user.UpdatedAt = time.Now()

	query := `
		UPDATE admin_users
		SET username = $2, email = $3, password_hash = $4, role = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateUsername, user.Username)
		}
		return fmt.Errorf("failed to update admin user: %w", err)
	}

	return nil
}

// Delete removes an admin user
func (r *AdminUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM admin_users WHERE id = $1`, id)
	return err
}

// TouchLastLogin records a successful login
func (r *AdminUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admin_users SET last_login_at = $2 WHERE id = $1`,
		id, time.Now(),
	)
	return err
}

// Count returns the total number of admin users
func (r *AdminUserRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admin_users`)
	return total, err
}
