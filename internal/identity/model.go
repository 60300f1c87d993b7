// Package identity manages user accounts. Roles are fixed at account
// creation; the rest of the platform only ever reads them.
package identity

import (
	"time"

	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// User is a registered account with exactly one role
type User struct {
	ID           types.ID  `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser creates a user record with validation
func NewUser(name, email, passwordHash string, role auth.Role) (*User, error) {
	details := map[string]string{}
	if name == "" {
		details["name"] = "required"
	}
	if email == "" {
		details["email"] = "required"
	}
	if passwordHash == "" {
		details["password"] = "required"
	}
	if !role.Valid() {
		details["role"] = "unknown role"
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid user", details)
	}

	return &User{
		ID:           types.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
