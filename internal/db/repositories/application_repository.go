// Package repositories implements the data access layer (repository pattern) for the catalog.
// Each repository type encapsulates all database queries for a domain entity.
// Handlers never issue SQL directly — all database access goes through this layer, which makes query logic testable in isolation and prevents accidental cross-domain data access.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/slug"
)

// ApplicationRepository handles application database operations
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// selectApplication is the column list shared by application reads; the self
// join fills parent_name for display.
const selectApplication = `
	SELECT a.id, a.slug, a.name, a.description, a.parent_id, a.properties,
	       a.tree_path, a.tree_depth, a.tree_left, a.tree_right,
	       a.created_at, a.updated_at, p.name AS parent_name
	FROM applications a
	LEFT JOIN applications p ON p.id = a.parent_id
`

// Create inserts a new application and rebuilds the hierarchy columns in the
// same transaction. A blank slug is generated from the name.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	now := time.Now()
	app.CreatedAt = now
	app.UpdatedAt = now
	if len(app.Properties) == 0 {
		app.Properties = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if app.Slug == "" {
		generated, err := slug.Generate(ctx, app.Name, slugTaken(tx, applicationsTable, nil))
		if err != nil {
			return fmt.Errorf("failed to generate application slug: %w", err)
		}
		app.Slug = generated
	}

	query := `
		INSERT INTO applications (id, slug, name, description, parent_id, properties, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		app.ID,
		app.Slug,
		app.Name,
		app.Description,
		app.ParentID,
		app.Properties,
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create application: %w", err)
	}

	if err := rebuildTree(ctx, tx, applicationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an application by ID, or nil if not found
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query := selectApplication + ` WHERE a.id = $1`

	var app models.Application
	err := r.db.GetContext(ctx, &app, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return &app, nil
}

// GetBySlug retrieves an application by slug, or nil if not found
func (r *ApplicationRepository) GetBySlug(ctx context.Context, s string) (*models.Application, error) {
	query := selectApplication + ` WHERE a.slug = $1`

	var app models.Application
	err := r.db.GetContext(ctx, &app, query, s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application by slug: %w", err)
	}

	return &app, nil
}

// List retrieves all applications in tree order (parents before children,
// siblings by creation time).
func (r *ApplicationRepository) List(ctx context.Context) ([]models.Application, error) {
	query := selectApplication + ` ORDER BY a.tree_path`

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	return apps, nil
}

// Search retrieves a page of applications in tree order, optionally filtered
// by a case-insensitive match on name, slug, or description. It returns the
// page and the total number of matching rows.
func (r *ApplicationRepository) Search(ctx context.Context, q string, limit, offset int) ([]models.Application, int, error) {
	var where string
	args := make([]interface{}, 0, 3)
	if q != "" {
		where = ` WHERE a.name ILIKE $1 OR a.slug ILIKE $1 OR a.description ILIKE $1`
		args = append(args, "%"+q+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM applications a` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count applications: %w", err)
	}

	query := selectApplication + where +
		fmt.Sprintf(` ORDER BY a.tree_path LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var apps []models.Application
	if err := r.db.SelectContext(ctx, &apps, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search applications: %w", err)
	}

	return apps, total, nil
}

// Update rewrites an application's editable fields and rebuilds the hierarchy
// columns in the same transaction. Moving an application under one of its own
// descendants fails the rebuild and rolls the write back.
func (r *ApplicationRepository) Update(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now()
	if len(app.Properties) == 0 {
		app.Properties = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if app.Slug == "" {
		generated, err := slug.Generate(ctx, app.Name, slugTaken(tx, applicationsTable, &app.ID))
		if err != nil {
			return fmt.Errorf("failed to generate application slug: %w", err)
		}
		app.Slug = generated
	}

	query := `
		UPDATE applications
		SET slug = $2, name = $3, description = $4, parent_id = $5, properties = $6, updated_at = $7
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		app.ID,
		app.Slug,
		app.Name,
		app.Description,
		app.ParentID,
		app.Properties,
		app.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update application: %w", err)
	}

	if err := rebuildTree(ctx, tx, applicationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an application. Children cascade via the parent foreign key,
// and the hierarchy columns are rebuilt in the same transaction.
func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	if err := rebuildTree(ctx, tx, applicationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetDetail retrieves an application together with its linked attributes,
// organisations, and tree ancestry, or nil if not found.
func (r *ApplicationRepository) GetDetail(ctx context.Context, id uuid.UUID) (*models.ApplicationDetail, error) {
	app, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, nil
	}

	detail := &models.ApplicationDetail{Application: *app}

	if detail.Attributes, err = r.GetAttributes(ctx, id); err != nil {
		return nil, err
	}
	if detail.Organisations, err = r.GetOrganisations(ctx, id); err != nil {
		return nil, err
	}

	ancestry, err := loadAncestry(ctx, r.db, applicationsTable, app.TreePath)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(ancestry))
	names := make([]string, len(ancestry))
	for i, a := range ancestry {
		slugs[i] = a.Slug
		names[i] = a.Name
	}
	detail.FullPath = strings.Join(slugs, ".")
	detail.PathNames = names

	return detail, nil
}

// GetAttributes retrieves the attributes linked to an application, in tree order
func (r *ApplicationRepository) GetAttributes(ctx context.Context, appID uuid.UUID) ([]models.Attribute, error) {
	query := `
		SELECT at.id, at.slug, at.name, at.value, at.data_type, at.description,
		       at.is_active, at.metadata, at.parent_id,
		       at.tree_path, at.tree_depth, at.tree_left, at.tree_right,
		       at.created_at, at.updated_at
		FROM attributes at
		JOIN application_attributes aa ON aa.attribute_id = at.id
		WHERE aa.application_id = $1
		ORDER BY at.tree_path
	`

	var attrs []models.Attribute
	if err := r.db.SelectContext(ctx, &attrs, query, appID); err != nil {
		return nil, fmt.Errorf("failed to get application attributes: %w", err)
	}
	return attrs, nil
}

// GetOrganisations retrieves the organisations linked to an application, in tree order
func (r *ApplicationRepository) GetOrganisations(ctx context.Context, appID uuid.UUID) ([]models.Organisation, error) {
	query := `
		SELECT o.id, o.slug, o.name, o.description, o.code, o.email, o.phone,
		       o.address, o.website, o.is_active, o.metadata, o.parent_id,
		       o.tree_path, o.tree_depth, o.tree_left, o.tree_right,
		       o.created_at, o.updated_at
		FROM organisations o
		JOIN application_organisations ao ON ao.organisation_id = o.id
		WHERE ao.application_id = $1
		ORDER BY o.tree_path
	`

	var orgs []models.Organisation
	if err := r.db.SelectContext(ctx, &orgs, query, appID); err != nil {
		return nil, fmt.Errorf("failed to get application organisations: %w", err)
	}
	return orgs, nil
}

// ReplaceAttributes sets the application's attribute links to exactly ids
func (r *ApplicationRepository) ReplaceAttributes(ctx context.Context, appID uuid.UUID, ids []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM application_attributes WHERE application_id = $1`, appID); err != nil {
		return fmt.Errorf("failed to clear application attributes: %w", err)
	}
	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO application_attributes (application_id, attribute_id) VALUES ($1, $2)`,
			appID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to link attribute %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// ReplaceOrganisations sets the application's organisation links to exactly ids
func (r *ApplicationRepository) ReplaceOrganisations(ctx context.Context, appID uuid.UUID, ids []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM application_organisations WHERE application_id = $1`, appID); err != nil {
		return fmt.Errorf("failed to clear application organisations: %w", err)
	}
	for _, id := range ids {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO application_organisations (application_id, organisation_id) VALUES ($1, $2)`,
			appID, id,
		)
		if err != nil {
			return fmt.Errorf("failed to link organisation %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// CountDescendants returns the number of applications in the subtree below
// the given application, using the precomputed tree bounds.
func (r *ApplicationRepository) CountDescendants(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM applications d, applications a
		WHERE a.id = $1 AND d.tree_left > a.tree_left AND d.tree_left < a.tree_right
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count application descendants: %w", err)
	}
	return count, nil
}

// Count returns the total number of applications
func (r *ApplicationRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM applications`)
	return total, err
}
