// organisation_repository.go implements OrganisationRepository, providing
// database queries for the organisation tree.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/slug"
)

// OrganisationRepository handles organisation database operations
type OrganisationRepository struct {
	db *sqlx.DB
}

// NewOrganisationRepository creates a new OrganisationRepository
func NewOrganisationRepository(db *sqlx.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

const selectOrganisation = `
	SELECT o.id, o.slug, o.name, o.description, o.code, o.email, o.phone,
	       o.address, o.website, o.is_active, o.metadata, o.parent_id,
	       o.tree_path, o.tree_depth, o.tree_left, o.tree_right,
	       o.created_at, o.updated_at, p.name AS parent_name
	FROM organisations o
	LEFT JOIN organisations p ON p.id = o.parent_id
`

// Create inserts a new organisation and rebuilds the hierarchy columns in the
// same transaction. A blank slug is generated from the name.
func (r *OrganisationRepository) Create(ctx context.Context, org *models.Organisation) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	now := time.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	if len(org.Metadata) == 0 {
		org.Metadata = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if org.Slug == "" {
		generated, err := slug.Generate(ctx, org.Name, slugTaken(tx, organisationsTable, nil))
		if err != nil {
			return fmt.Errorf("failed to generate organisation slug: %w", err)
		}
		org.Slug = generated
	}

	query := `
		INSERT INTO organisations (id, slug, name, description, code, email, phone, address, website, is_active, metadata, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = tx.ExecContext(ctx, query,
		org.ID,
		org.Slug,
		org.Name,
		org.Description,
		org.Code,
		org.Email,
		org.Phone,
		org.Address,
		org.Website,
		org.IsActive,
		org.Metadata,
		org.ParentID,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create organisation: %w", err)
	}

	if err := rebuildTree(ctx, tx, organisationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an organisation by ID, or nil if not found
func (r *OrganisationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organisation, error) {
	query := selectOrganisation + ` WHERE o.id = $1`

	var org models.Organisation
	err := r.db.GetContext(ctx, &org, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organisation: %w", err)
	}

	return &org, nil
}

// GetBySlug retrieves an organisation by slug, or nil if not found
func (r *OrganisationRepository) GetBySlug(ctx context.Context, s string) (*models.Organisation, error) {
	query := selectOrganisation + ` WHERE o.slug = $1`

	var org models.Organisation
	err := r.db.GetContext(ctx, &org, query, s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organisation by slug: %w", err)
	}

	return &org, nil
}

// List retrieves organisations in tree order. When activeOnly is set,
// inactive organisations are filtered out.
func (r *OrganisationRepository) List(ctx context.Context, activeOnly bool) ([]models.Organisation, error) {
	query := selectOrganisation
	if activeOnly {
		query += ` WHERE o.is_active = true`
	}
	query += ` ORDER BY o.tree_path`

	var orgs []models.Organisation
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}

	return orgs, nil
}

// Search retrieves a page of organisations in tree order, optionally filtered
// by a case-insensitive match on name, slug, or description. It returns the
// page and the total number of matching rows.
func (r *OrganisationRepository) Search(ctx context.Context, q string, limit, offset int) ([]models.Organisation, int, error) {
	var where string
	args := make([]interface{}, 0, 3)
	if q != "" {
		where = ` WHERE o.name ILIKE $1 OR o.slug ILIKE $1 OR o.description ILIKE $1`
		args = append(args, "%"+q+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM organisations o` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count organisations: %w", err)
	}

	query := selectOrganisation + where +
		fmt.Sprintf(` ORDER BY o.tree_path LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var orgs []models.Organisation
	if err := r.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search organisations: %w", err)
	}

	return orgs, total, nil
}

// Update rewrites an organisation's editable fields and rebuilds the
// hierarchy columns in the same transaction.
func (r *OrganisationRepository) Update(ctx context.Context, org *models.Organisation) error {
	org.UpdatedAt = time.Now()
	if len(org.Metadata) == 0 {
		org.Metadata = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if org.Slug == "" {
		generated, err := slug.Generate(ctx, org.Name, slugTaken(tx, organisationsTable, &org.ID))
		if err != nil {
			return fmt.Errorf("failed to generate organisation slug: %w", err)
		}
		org.Slug = generated
	}

	query := `
		UPDATE organisations
		SET slug = $2, name = $3, description = $4, code = $5, email = $6, phone = $7,
		    address = $8, website = $9, is_active = $10, metadata = $11, parent_id = $12, updated_at = $13
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		org.ID,
		org.Slug,
		org.Name,
		org.Description,
		org.Code,
		org.Email,
		org.Phone,
		org.Address,
		org.Website,
		org.IsActive,
		org.Metadata,
		org.ParentID,
		org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update organisation: %w", err)
	}

	if err := rebuildTree(ctx, tx, organisationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an organisation. Children cascade via the parent foreign
// key, and the hierarchy columns are rebuilt in the same transaction.
func (r *OrganisationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM organisations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete organisation: %w", err)
	}

	if err := rebuildTree(ctx, tx, organisationsTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetFullPath returns the dotted slug path from the root down to the
// organisation, e.g. "company-a.subsidiary-1".
func (r *OrganisationRepository) GetFullPath(ctx context.Context, id uuid.UUID) (string, error) {
	org, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if org == nil {
		return "", nil
	}

	ancestry, err := loadAncestry(ctx, r.db, organisationsTable, org.TreePath)
	if err != nil {
		return "", err
	}

	path := ""
	for i, a := range ancestry {
		if i > 0 {
			path += "."
		}
		path += a.Slug
	}
	return path, nil
}

// PathNames returns the ancestor names from the root down to the
// organisation, inclusive, for tree info rendering.
func (r *OrganisationRepository) PathNames(ctx context.Context, org *models.Organisation) ([]string, error) {
	ancestry, err := loadAncestry(ctx, r.db, organisationsTable, org.TreePath)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ancestry))
	for i, a := range ancestry {
		names[i] = a.Name
	}
	return names, nil
}

// CountDescendants returns the number of organisations in the subtree below
// the given organisation, using the precomputed tree bounds.
func (r *OrganisationRepository) CountDescendants(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM organisations d, organisations a
		WHERE a.id = $1 AND d.tree_left > a.tree_left AND d.tree_left < a.tree_right
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count organisation descendants: %w", err)
	}
	return count, nil
}

// Count returns the total number of organisations
func (r *OrganisationRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM organisations`)
	return total, err
}
