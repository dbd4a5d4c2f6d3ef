package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/application-catalog/application-catalog/internal/db/models"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newAttributeRepo(t *testing.T) (*AttributeRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAttributeRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var attributeCols = []string{
	"id", "slug", "name", "value", "data_type", "description",
	"is_active", "metadata", "parent_id",
	"tree_path", "tree_depth", "tree_left", "tree_right",
	"created_at", "updated_at", "parent_name",
}

func sampleAttributeRow(id uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows(attributeCols).
		AddRow(id, "category-a", "Category A", "true", "boolean", "", true, []byte(`{}`), nil,
			"000", 0, 1, 6, time.Now(), time.Now(), nil)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestAttributeCreate_Success(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attributes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectTreeRebuild(mock, "attributes", id)
	mock.ExpectCommit()

	attr := &models.Attribute{
		ID:       id,
		Slug:     "category-a",
		Name:     "Category A",
		Value:    "true",
		DataType: "boolean",
		IsActive: true,
	}
	if err := repo.Create(context.Background(), attr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(attr.Metadata) != `{}` {
		t.Errorf("Metadata = %s, want {}", attr.Metadata)
	}
}

func TestAttributeCreate_DuplicateSlug(t *testing.T) {
	repo, mock := newAttributeRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attributes").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	attr := &models.Attribute{Slug: "category-a", Name: "Category A"}
	if err := repo.Create(context.Background(), attr); !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("expected ErrDuplicateSlug, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// GetByID / GetBySlug
// ---------------------------------------------------------------------------

func TestAttributeGetByID_Found(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sampleAttributeRow(id))

	attr, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr == nil {
		t.Fatal("expected attribute, got nil")
	}
	if attr.DataType != "boolean" {
		t.Errorf("DataType = %q, want boolean", attr.DataType)
	}
}

func TestAttributeGetByID_NotFound(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(attributeCols))

	attr, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr != nil {
		t.Errorf("expected nil attribute for not found, got %+v", attr)
	}
}

func TestAttributeGetBySlug_DBError(t *testing.T) {
	repo, mock := newAttributeRepo(t)

	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*WHERE a.slug").
		WithArgs("category-a").
		WillReturnError(errDB)

	if _, err := repo.GetBySlug(context.Background(), "category-a"); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestAttributeList_All(t *testing.T) {
	repo, mock := newAttributeRepo(t)

	rows := sqlmock.NewRows(attributeCols).
		AddRow(uuid.New(), "category-a", "Category A", "true", "boolean", "", true, []byte(`{}`), nil,
			"000", 0, 1, 6, time.Now(), time.Now(), nil).
		AddRow(uuid.New(), "tag-1", "Tag 1", "", "string", "", false, []byte(`{}`), nil,
			"000.000", 1, 2, 3, time.Now(), time.Now(), "Category A")

	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*ORDER BY a.tree_path").
		WillReturnRows(rows)

	attrs, err := repo.List(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestAttributeList_ActiveOnly(t *testing.T) {
	repo, mock := newAttributeRepo(t)

	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*WHERE a.is_active = true.*ORDER BY a.tree_path").
		WillReturnRows(sqlmock.NewRows(attributeCols))

	attrs, err := repo.List(context.Background(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attrs) != 0 {
		t.Errorf("expected no attributes, got %d", len(attrs))
	}
}

func TestAttributeSearch_WithQuery(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT.* FROM attributes a WHERE a.name ILIKE").
		WithArgs("%cat%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT a.id.*WHERE a.name ILIKE.*ORDER BY a.tree_path LIMIT").
		WithArgs("%cat%", 20, 0).
		WillReturnRows(sampleAttributeRow(id))

	attrs, total, err := repo.Search(context.Background(), "cat", 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(attrs) != 1 {
		t.Errorf("total = %d, page = %d, want 1 and 1", total, len(attrs))
	}
}

// ---------------------------------------------------------------------------
// Update / Delete
// ---------------------------------------------------------------------------

func TestAttributeUpdate_Success(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attributes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTreeRebuild(mock, "attributes", id)
	mock.ExpectCommit()

	attr := &models.Attribute{ID: id, Slug: "category-a", Name: "Category A", DataType: "boolean", Value: "false"}
	if err := repo.Update(context.Background(), attr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAttributeUpdate_RegeneratesBlankSlug(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	// The collision probe excludes the attribute's own row.
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("category-a", id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("UPDATE attributes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTreeRebuild(mock, "attributes", id)
	mock.ExpectCommit()

	attr := &models.Attribute{ID: id, Name: "Category A", DataType: "string"}
	if err := repo.Update(context.Background(), attr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Slug != "category-a" {
		t.Errorf("Slug = %q, want category-a", attr.Slug)
	}
}

func TestAttributeDelete_Success(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM attributes").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTreeRebuild(mock, "attributes")
	mock.ExpectCommit()

	if err := repo.Delete(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Ancestry
// ---------------------------------------------------------------------------

func TestAttributeGetFullPath(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	row := sqlmock.NewRows(attributeCols).
		AddRow(id, "tag-1", "Tag 1", "", "string", "", true, []byte(`{}`), nil,
			"000.000", 1, 2, 3, time.Now(), time.Now(), "Category A")
	mock.ExpectQuery("SELECT a.id.*FROM attributes a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(row)

	ancestry := sqlmock.NewRows([]string{"name", "slug"}).
		AddRow("Category A", "category-a").
		AddRow("Tag 1", "tag-1")
	mock.ExpectQuery("SELECT name, slug FROM attributes WHERE tree_path IN").
		WithArgs("000", "000.000").
		WillReturnRows(ancestry)

	path, err := repo.GetFullPath(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "category-a.tag-1" {
		t.Errorf("path = %q, want category-a.tag-1", path)
	}
}

func TestAttributePathNames(t *testing.T) {
	repo, mock := newAttributeRepo(t)

	ancestry := sqlmock.NewRows([]string{"name", "slug"}).
		AddRow("Category A", "category-a").
		AddRow("Tag 2", "tag-2")
	mock.ExpectQuery("SELECT name, slug FROM attributes WHERE tree_path IN").
		WithArgs("000", "000.001").
		WillReturnRows(ancestry)

	attr := &models.Attribute{TreeColumns: models.TreeColumns{TreePath: "000.001"}}
	names, err := repo.PathNames(context.Background(), attr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "Category A" || names[1] != "Tag 2" {
		t.Errorf("names = %v", names)
	}
}

// ---------------------------------------------------------------------------
// Counts
// ---------------------------------------------------------------------------

func TestAttributeCountDescendants(t *testing.T) {
	repo, mock := newAttributeRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountDescendants(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
