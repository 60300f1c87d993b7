package identity

import (
	"testing"

	"github.com/civicdesk/platform/internal/shared/auth"
)

// TestNewUser tests user creation and validation
func TestNewUser(t *testing.T) {
	u, err := NewUser("Mira Petrov", "mira@example.com", "$2a$10$hash", auth.RoleCitizen)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if u.ID.IsZero() {
		t.Error("Expected non-zero ID")
	}
	if u.Role != auth.RoleCitizen {
		t.Errorf("Expected role %s, got %s", auth.RoleCitizen, u.Role)
	}

	tests := []struct {
		name     string
		userName string
		email    string
		hash     string
		role     auth.Role
	}{
		{"Empty name", "", "a@b.c", "h", auth.RoleCitizen},
		{"Empty email", "A", "", "h", auth.RoleCitizen},
		{"Empty password hash", "A", "a@b.c", "", auth.RoleCitizen},
		{"Unknown role", "A", "a@b.c", "h", auth.Role("superuser")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewUser(tt.userName, tt.email, tt.hash, tt.role); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

// TestParseRole tests role parsing
func TestParseRole(t *testing.T) {
	for _, s := range []string{"citizen", "staff", "admin"} {
		role, err := auth.ParseRole(s)
		if err != nil {
			t.Errorf("ParseRole(%s) failed: %v", s, err)
		}
		if string(role) != s {
			t.Errorf("Expected %s, got %s", s, role)
		}
	}

	if _, err := auth.ParseRole("root"); err == nil {
		t.Error("Expected unknown role to be rejected")
	}
}
