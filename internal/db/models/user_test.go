package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAdminUser_CanWrite(t *testing.T) {
	tests := []struct {
		role string
		want bool
	}{
		{RoleAdmin, true},
		{RoleViewer, false},
		{"", false},
		{"superuser", false},
	}
	for _, tt := range tests {
		u := &AdminUser{Role: tt.role}
		if got := u.CanWrite(); got != tt.want {
			t.Errorf("CanWrite() with role %q = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestAdminUser_PasswordHashNeverSerialized(t *testing.T) {
	u := &AdminUser{
		Username:     "admin",
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
		Role:         RoleAdmin,
	}

	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "$2a$12$") {
		t.Error("password hash leaked into JSON output")
	}
	if strings.Contains(string(out), "password_hash") {
		t.Error("password_hash key present in JSON output")
	}
}

func TestAdminUser_LastLoginOmittedWhenNil(t *testing.T) {
	u := &AdminUser{Username: "admin"}

	out, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "last_login_at") {
		t.Error("last_login_at should be omitted when the user never logged in")
	}
}
