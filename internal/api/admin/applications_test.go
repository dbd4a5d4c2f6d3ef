// applications_test.go covers the application CRUD handlers against a mocked
// database.
package admin

import (
	"net/http"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

func newApplicationRouter(t *testing.T) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newTestDB(t)
	h := NewApplicationHandlers(db)

	r := gin.New()
	r.GET("/admin/applications", h.ListApplicationsHandler())
	r.POST("/admin/applications", h.CreateApplicationHandler())
	r.GET("/admin/applications/:id", h.GetApplicationHandler())
	r.PUT("/admin/applications/:id", h.UpdateApplicationHandler())
	r.DELETE("/admin/applications/:id", h.DeleteApplicationHandler())
	return mock, r
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestListApplications(t *testing.T) {
	mock, r := newApplicationRouter(t)

	mock.ExpectQuery("SELECT COUNT.* FROM applications a").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT a.id.*ORDER BY a.tree_path LIMIT").
		WithArgs(20, 0).
		WillReturnRows(sampleApplicationRow(uuid.New()).
			AddRow(uuid.New(), "app-b", "App B", "", nil, []byte(`{}`),
				"001", 0, 3, 4, time.Now(), time.Now(), nil))

	w := doJSON(r, http.MethodGet, "/admin/applications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	apps, ok := resp["applications"].([]interface{})
	if !ok || len(apps) != 2 {
		t.Fatalf("expected 2 applications, got %v", resp["applications"])
	}
	first := apps[0].(map[string]interface{})
	if first["indented_name"] != "App A" {
		t.Errorf("indented_name = %v, want App A", first["indented_name"])
	}
	pagination := resp["pagination"].(map[string]interface{})
	if pagination["total"] != float64(2) {
		t.Errorf("pagination.total = %v, want 2", pagination["total"])
	}
}

func TestListApplications_SearchTerm(t *testing.T) {
	mock, r := newApplicationRouter(t)

	mock.ExpectQuery("SELECT COUNT.* FROM applications a WHERE a.name ILIKE").
		WithArgs("%app%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT a.id.*WHERE a.name ILIKE.*ORDER BY a.tree_path LIMIT").
		WithArgs("%app%", 20, 0).
		WillReturnRows(sampleApplicationRow(uuid.New()))

	w := doJSON(r, http.MethodGet, "/admin/applications?q=app", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestListApplications_DBError(t *testing.T) {
	mock, r := newApplicationRouter(t)

	mock.ExpectQuery("SELECT COUNT.* FROM applications a").
		WillReturnError(errDB)

	w := doJSON(r, http.MethodGet, "/admin/applications", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestGetApplication(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	expectApplicationDetail(mock, id)

	w := doJSON(r, http.MethodGet, "/admin/applications/"+id.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	app, ok := resp["application"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected application object, got %v", resp)
	}
	if app["full_path"] != "app-a" {
		t.Errorf("full_path = %v, want app-a", app["full_path"])
	}
	if app["tree_info"] == "" {
		t.Error("expected tree_info to be populated")
	}
}

func TestGetApplication_NotFound(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(applicationCols))

	w := doJSON(r, http.MethodGet, "/admin/applications/"+id.String(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetApplication_BadID(t *testing.T) {
	_, r := newApplicationRouter(t)

	w := doJSON(r, http.MethodGet, "/admin/applications/not-a-uuid", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateApplication(t *testing.T) {
	mock, r := newApplicationRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("app-a").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectTreeRebuild(mock, "applications", uuid.New())
	mock.ExpectCommit()
	expectApplicationDetail(mock, uuid.New())

	w := doJSON(r, http.MethodPost, "/admin/applications", `{"name":"App A"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	app := resp["application"].(map[string]interface{})
	if app["slug"] != "app-a" {
		t.Errorf("slug = %v, want app-a", app["slug"])
	}
}

func TestCreateApplication_DuplicateSlug(t *testing.T) {
	mock, r := newApplicationRouter(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	w := doJSON(r, http.MethodPost, "/admin/applications", `{"name":"App A","slug":"app-a"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Slug already exists") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestCreateApplication_ParentMissing(t *testing.T) {
	mock, r := newApplicationRouter(t)
	parentID := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(parentID).
		WillReturnRows(sqlmock.NewRows(applicationCols))

	w := doJSON(r, http.MethodPost, "/admin/applications",
		`{"name":"App A","parent_id":"`+parentID.String()+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Parent application not found") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestCreateApplication_InvalidSlug(t *testing.T) {
	_, r := newApplicationRouter(t)

	w := doJSON(r, http.MethodPost, "/admin/applications",
		`{"name":"App A","slug":"Not A Valid Slug!"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Invalid slug") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestCreateApplication_MissingName(t *testing.T) {
	_, r := newApplicationRouter(t)

	w := doJSON(r, http.MethodPost, "/admin/applications", `{"slug":"app-a"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateApplication(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sampleApplicationRow(id))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTreeRebuild(mock, "applications", id)
	mock.ExpectCommit()
	expectApplicationDetail(mock, id)

	w := doJSON(r, http.MethodPut, "/admin/applications/"+id.String(),
		`{"description":"Updated description"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestUpdateApplication_InvalidSlug(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sampleApplicationRow(id))

	w := doJSON(r, http.MethodPut, "/admin/applications/"+id.String(),
		`{"slug":"Not A Valid Slug!"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Invalid slug") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestUpdateApplication_NotFound(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(applicationCols))

	w := doJSON(r, http.MethodPut, "/admin/applications/"+id.String(), `{"name":"X"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateApplication_CycleRejected(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()
	parentID := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sampleApplicationRow(id))
	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(parentID).
		WillReturnRows(sampleApplicationRow(parentID))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The reloaded hierarchy contains a cycle, so the rebuild fails before
	// any placement is written
	mock.ExpectQuery("SELECT id, parent_id FROM applications").
		WillReturnRows(sqlmock.NewRows([]string{"id", "parent_id"}).
			AddRow(id, parentID).
			AddRow(parentID, id))
	mock.ExpectRollback()

	w := doJSON(r, http.MethodPut, "/admin/applications/"+id.String(),
		`{"parent_id":"`+parentID.String()+`"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "cycle") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDeleteApplication(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sampleApplicationRow(id))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM applications").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectTreeRebuild(mock, "applications")
	mock.ExpectCommit()

	w := doJSON(r, http.MethodDelete, "/admin/applications/"+id.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "deleted successfully") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestDeleteApplication_NotFound(t *testing.T) {
	mock, r := newApplicationRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT a.id.*FROM applications a.*WHERE a.id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(applicationCols))

	w := doJSON(r, http.MethodDelete, "/admin/applications/"+id.String(), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
