// attribute_repository.go implements AttributeRepository, providing database
// queries for the typed attribute tree.
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

// AttributeRepository handles attribute database operations
type AttributeRepository struct {
	db *sqlx.DB
}

// NewAttributeRepository creates a new AttributeRepository
func NewAttributeRepository(db *sqlx.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

const selectAttribute = `
	SELECT a.id, a.slug, a.name, a.value, a.data_type, a.description,
	       a.is_active, a.metadata, a.parent_id,
	       a.tree_path, a.tree_depth, a.tree_left, a.tree_right,
	       a.created_at, a.updated_at, p.name AS parent_name
	FROM attributes a
	LEFT JOIN attributes p ON p.id = a.parent_id
`

// Create inserts a new attribute and rebuilds the hierarchy columns in the
// same transaction. A blank slug is generated from the name.
func (r *AttributeRepository) Create(ctx context.Context, attr *models.Attribute) error {
	if attr.ID == uuid.Nil {
		attr.ID = uuid.New()
	}
	now := time.Now()
	attr.CreatedAt = now
	attr.UpdatedAt = now
	if len(attr.Metadata) == 0 {
		attr.Metadata = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if attr.Slug == "" {
		generated, err := slug.Generate(ctx, attr.Name, slugTaken(tx, attributesTable, nil))
		if err != nil {
			return fmt.Errorf("failed to generate attribute slug: %w", err)
		}
		attr.Slug = generated
	}

	query := `
		INSERT INTO attributes (id, slug, name, value, data_type, description, is_active, metadata, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		attr.ID,
		attr.Slug,
		attr.Name,
		attr.Value,
		attr.DataType,
		attr.Description,
		attr.IsActive,
		attr.Metadata,
		attr.ParentID,
		attr.CreatedAt,
		attr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create attribute: %w", err)
	}

	if err := rebuildTree(ctx, tx, attributesTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID retrieves an attribute by ID, or nil if not found
func (r *AttributeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Attribute, error) {
	query := selectAttribute + ` WHERE a.id = $1`

	var attr models.Attribute
	err := r.db.GetContext(ctx, &attr, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute: %w", err)
	}

	return &attr, nil
}

// GetBySlug retrieves an attribute by slug, or nil if not found
func (r *AttributeRepository) GetBySlug(ctx context.Context, s string) (*models.Attribute, error) {
	query := selectAttribute + ` WHERE a.slug = $1`

	var attr models.Attribute
	err := r.db.GetContext(ctx, &attr, query, s)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute by slug: %w", err)
	}

	return &attr, nil
}

// List retrieves attributes in tree order. When activeOnly is set, inactive
// attributes are filtered out.
func (r *AttributeRepository) List(ctx context.Context, activeOnly bool) ([]models.Attribute, error) {
	query := selectAttribute
	if activeOnly {
		query += ` WHERE a.is_active = true`
	}
	query += ` ORDER BY a.tree_path`

	var attrs []models.Attribute
	if err := r.db.SelectContext(ctx, &attrs, query); err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}

	return attrs, nil
}

// Search retrieves a page of attributes in tree order, optionally filtered by
// a case-insensitive match on name, slug, or description. It returns the page
// and the total number of matching rows.
func (r *AttributeRepository) Search(ctx context.Context, q string, limit, offset int) ([]models.Attribute, int, error) {
	var where string
	args := make([]interface{}, 0, 3)
	if q != "" {
		where = ` WHERE a.name ILIKE $1 OR a.slug ILIKE $1 OR a.description ILIKE $1`
		args = append(args, "%"+q+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM attributes a` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count attributes: %w", err)
	}

	query := selectAttribute + where +
		fmt.Sprintf(` ORDER BY a.tree_path LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var attrs []models.Attribute
	if err := r.db.SelectContext(ctx, &attrs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search attributes: %w", err)
	}

	return attrs, total, nil
}

// Update rewrites an attribute's editable fields and rebuilds the hierarchy
// columns in the same transaction.
func (r *AttributeRepository) Update(ctx context.Context, attr *models.Attribute) error {
	attr.UpdatedAt = time.Now()
	if len(attr.Metadata) == 0 {
		attr.Metadata = json.RawMessage(`{}`)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if attr.Slug == "" {
		generated, err := slug.Generate(ctx, attr.Name, slugTaken(tx, attributesTable, &attr.ID))
		if err != nil {
			return fmt.Errorf("failed to generate attribute slug: %w", err)
		}
		attr.Slug = generated
	}

	query := `
		UPDATE attributes
		SET slug = $2, name = $3, value = $4, data_type = $5, description = $6,
		    is_active = $7, metadata = $8, parent_id = $9, updated_at = $10
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		attr.ID,
		attr.Slug,
		attr.Name,
		attr.Value,
		attr.DataType,
		attr.Description,
		attr.IsActive,
		attr.Metadata,
		attr.ParentID,
		attr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update attribute: %w", err)
	}

	if err := rebuildTree(ctx, tx, attributesTable); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes an attribute. Children cascade via the parent foreign key,
// and the hierarchy columns are rebuilt in the same transaction.
func (r *AttributeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM attributes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete attribute: %w", err)
	}

	if err := rebuildTree(ctx, tx, attributesTable); err != nil {
		return err
	}

	return tx.Commit()
}

// GetFullPath returns the dotted slug path from the root down to the
// attribute, e.g. "category-a.tag-1".
func (r *AttributeRepository) GetFullPath(ctx context.Context, id uuid.UUID) (string, error) {
	attr, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if attr == nil {
		return "", nil
	}

	ancestry, err := loadAncestry(ctx, r.db, attributesTable, attr.TreePath)
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

// PathNames returns the ancestor names from the root down to the attribute,
// inclusive, for tree info rendering.
func (r *AttributeRepository) PathNames(ctx context.Context, attr *models.Attribute) ([]string, error) {
	ancestry, err := loadAncestry(ctx, r.db, attributesTable, attr.TreePath)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ancestry))
	for i, a := range ancestry {
		names[i] = a.Name
	}
	return names, nil
}

// CountDescendants returns the number of attributes in the subtree below the
// given attribute, using the precomputed tree bounds.
func (r *AttributeRepository) CountDescendants(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM attributes d, attributes a
		WHERE a.id = $1 AND d.tree_left > a.tree_left AND d.tree_left < a.tree_right
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("failed to count attribute descendants: %w", err)
	}
	return count, nil
}

// Count returns the total number of attributes
func (r *AttributeRepository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM attributes`)
	return total, err
}
