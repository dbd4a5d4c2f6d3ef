package admin

import (
	"net/http"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func newStatsRouter(db *sqlx.DB) *gin.Engine {
	h := NewStatsHandlers(db, "0.1.0")
	r := gin.New()
	r.GET("/admin/", h.IndexHandler())
	r.GET("/admin/stats", h.DashboardStatsHandler())
	return r
}

func TestIndex(t *testing.T) {
	db, mock := newTestDB(t)
	r := newStatsRouter(db)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM applications\) AS application_count`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"application_count", "attribute_count", "organisation_count"},
		).AddRow(3, 3, 3))

	w := doJSON(r, http.MethodGet, "/admin/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	resp := decodeJSON(t, w)
	if resp["service"] != "application-catalog" {
		t.Errorf("service = %v, want application-catalog", resp["service"])
	}
	if resp["version"] != "0.1.0" {
		t.Errorf("version = %v, want 0.1.0", resp["version"])
	}
	counts, ok := resp["counts"].(map[string]interface{})
	if !ok {
		t.Fatalf("counts missing from response: %v", resp)
	}
	if counts["applications"] != float64(3) {
		t.Errorf("applications count = %v, want 3", counts["applications"])
	}
}

func TestIndex_DatabaseError(t *testing.T) {
	db, mock := newTestDB(t)
	r := newStatsRouter(db)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM applications\)`).
		WillReturnError(errDB)

	w := doJSON(r, http.MethodGet, "/admin/", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func statsColumns() []string {
	return []string{
		"application_count", "application_roots", "application_max_depth",
		"attribute_links", "organisation_links",
		"attribute_count", "attribute_roots", "attribute_max_depth", "attribute_inactive",
		"organisation_count", "organisation_roots", "organisation_max_depth", "organisation_inactive",
		"admin_user_count",
	}
}

func TestDashboardStats(t *testing.T) {
	db, mock := newTestDB(t)
	r := newStatsRouter(db)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM applications\) AS application_count,`).
		WillReturnRows(sqlmock.NewRows(statsColumns()).
			AddRow(3, 2, 1, 2, 2, 3, 1, 1, 0, 3, 1, 1, 1, 1))
	// Recent activity read
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT id, user_id, action, resource_type, resource_id, metadata, ip_address, status_code, created_at\s+FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "action", "resource_type", "resource_id",
			"metadata", "ip_address", "status_code", "created_at",
		}))

	w := doJSON(r, http.MethodGet, "/admin/stats", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	resp := decodeJSON(t, w)

	apps, ok := resp["applications"].(map[string]interface{})
	if !ok {
		t.Fatalf("applications stats missing: %v", resp)
	}
	if apps["total"] != float64(3) || apps["roots"] != float64(2) {
		t.Errorf("application stats = %v, want total 3 roots 2", apps)
	}
	if apps["attribute_links"] != float64(2) {
		t.Errorf("attribute_links = %v, want 2", apps["attribute_links"])
	}
	if resp["admin_users"] != float64(1) {
		t.Errorf("admin_users = %v, want 1", resp["admin_users"])
	}
	// No rebuild has run under this mock database
	if _, present := resp["last_tree_rebuild"]; !present {
		t.Error("last_tree_rebuild key missing from response")
	}
	if activity, ok := resp["recent_activity"].([]interface{}); !ok || len(activity) != 0 {
		t.Errorf("recent_activity = %v, want empty array", resp["recent_activity"])
	}
}

func TestDashboardStats_DatabaseError(t *testing.T) {
	db, mock := newTestDB(t)
	r := newStatsRouter(db)

	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM applications\) AS application_count,`).
		WillReturnError(errDB)

	w := doJSON(r, http.MethodGet, "/admin/stats", "")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
