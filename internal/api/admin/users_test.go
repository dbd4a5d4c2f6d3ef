// users_test.go covers admin account management: listing, creation, role and
// password changes, and the self-delete guard.
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

	"github.com/application-catalog/application-catalog/internal/db/models"
)

// newUserRouter registers the user routes behind a stub that injects the
// calling user's ID, the way the auth middleware does in production.
func newUserRouter(t *testing.T, callerID uuid.UUID) (sqlmock.Sqlmock, *gin.Engine) {
	t.Helper()
	db, mock := newTestDB(t)
	h := NewUserHandlers(db)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", callerID.String())
	})
	r.GET("/admin/users", h.ListUsersHandler())
	r.POST("/admin/users", h.CreateUserHandler())
	r.PUT("/admin/users/:id", h.UpdateUserHandler())
	r.PUT("/admin/users/:id/password", h.ChangePasswordHandler())
	r.DELETE("/admin/users/:id", h.DeleteUserHandler())
	return mock, r
}

func adminUserRow(id uuid.UUID, username, role string) *sqlmock.Rows {
	return sqlmock.NewRows(adminUserCols).
		AddRow(id, username, "", "$2a$12$fakehash", role, true, nil, time.Now(), time.Now())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestListUsers(t *testing.T) {
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectQuery("SELECT id, username.*FROM admin_users.*ORDER BY created_at DESC").
		WillReturnRows(adminUserRow(uuid.New(), "admin", models.RoleAdmin).
			AddRow(uuid.New(), "viewer", "", "$2a$12$fakehash", models.RoleViewer, true, nil, time.Now(), time.Now()))

	w := doJSON(r, http.MethodGet, "/admin/users", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	users, ok := resp["users"].([]interface{})
	if !ok || len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", resp["users"])
	}
	// Password hashes never leave the API
	if strings.Contains(w.Body.String(), "fakehash") {
		t.Error("response leaked a password hash")
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateUser(t *testing.T) {
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectExec("INSERT INTO admin_users").
		WillReturnResult(sqlmock.NewResult(1, 1))

	w := doJSON(r, http.MethodPost, "/admin/users",
		`{"username":"operator","password":"operator123"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	user := resp["user"].(map[string]interface{})
	if user["username"] != "operator" {
		t.Errorf("username = %v, want operator", user["username"])
	}
	// Role defaults to admin when omitted
	if user["role"] != models.RoleAdmin {
		t.Errorf("role = %v, want %v", user["role"], models.RoleAdmin)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectExec("INSERT INTO admin_users").
		WillReturnError(&pq.Error{Code: "23505"})

	w := doJSON(r, http.MethodPost, "/admin/users",
		`{"username":"admin","password":"admin12345"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Username already exists") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestCreateUser_ShortPassword(t *testing.T) {
	_, r := newUserRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/admin/users",
		`{"username":"operator","password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUser_BadRole(t *testing.T) {
	_, r := newUserRouter(t, uuid.New())

	w := doJSON(r, http.MethodPost, "/admin/users",
		`{"username":"operator","password":"operator123","role":"root"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Invalid role") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateUser_RoleChange(t *testing.T) {
	id := uuid.New()
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectQuery("SELECT id, username.*FROM admin_users.*WHERE id").
		WithArgs(id).
		WillReturnRows(adminUserRow(id, "operator", models.RoleAdmin))
	mock.ExpectExec("UPDATE admin_users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPut, "/admin/users/"+id.String(), `{"role":"viewer"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeJSON(t, w)
	user := resp["user"].(map[string]interface{})
	if user["role"] != models.RoleViewer {
		t.Errorf("role = %v, want %v", user["role"], models.RoleViewer)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	id := uuid.New()
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectQuery("SELECT id, username.*FROM admin_users.*WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(adminUserCols))

	w := doJSON(r, http.MethodPut, "/admin/users/"+id.String(), `{"role":"viewer"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Password change
// ---------------------------------------------------------------------------

func TestChangePassword(t *testing.T) {
	id := uuid.New()
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectQuery("SELECT id, username.*FROM admin_users.*WHERE id").
		WithArgs(id).
		WillReturnRows(adminUserRow(id, "operator", models.RoleAdmin))
	mock.ExpectExec("UPDATE admin_users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodPut, "/admin/users/"+id.String()+"/password",
		`{"password":"new-password-123"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Password updated successfully") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestChangePassword_TooShort(t *testing.T) {
	id := uuid.New()
	_, r := newUserRouter(t, uuid.New())

	w := doJSON(r, http.MethodPut, "/admin/users/"+id.String()+"/password",
		`{"password":"short"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDeleteUser(t *testing.T) {
	id := uuid.New()
	mock, r := newUserRouter(t, uuid.New())

	mock.ExpectQuery("SELECT id, username.*FROM admin_users.*WHERE id").
		WithArgs(id).
		WillReturnRows(adminUserRow(id, "operator", models.RoleAdmin))
	mock.ExpectExec("DELETE FROM admin_users").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := doJSON(r, http.MethodDelete, "/admin/users/"+id.String(), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestDeleteUser_Self(t *testing.T) {
	selfID := uuid.New()
	_, r := newUserRouter(t, selfID)

	w := doJSON(r, http.MethodDelete, "/admin/users/"+selfID.String(), "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Cannot delete your own account") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}
