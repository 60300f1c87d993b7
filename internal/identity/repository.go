package identity

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// Directory resolves user identities for other modules. The assignment path
// uses it to verify that an assignee actually holds the staff role.
type Directory interface {
	RoleOf(ctx context.Context, id types.ID) (auth.Role, error)
}

// Repository provides user persistence backed by PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var _ Directory = (*Repository)(nil)

// NewRepository creates a new user repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("an account with this email already exists")
		}
		return errors.Unavailable(err)
	}

	return nil
}

// FindByID loads a user by id
func (r *Repository) FindByID(ctx context.Context, id types.ID) (*User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

// FindByEmail loads a user by email
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users ` + where

	u := &User{}
	var role string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", "")
	}
	if err != nil {
		return nil, errors.Unavailable(err)
	}

	u.Role = auth.Role(role)
	return u, nil
}

// RoleOf implements Directory
func (r *Repository) RoleOf(ctx context.Context, id types.ID) (auth.Role, error) {
	var role string
	err := r.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if err == pgx.ErrNoRows {
		return "", errors.NotFound("user", id.String())
	}
	if err != nil {
		return "", errors.Unavailable(err)
	}
	return auth.Role(role), nil
}

// ListByRole loads all users with the given role, newest first
func (r *Repository) ListByRole(ctx context.Context, role auth.Role) ([]User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at
		FROM users
		WHERE role = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(role))
	if err != nil {
		return nil, errors.Unavailable(err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var roleStr string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &roleStr, &u.CreatedAt); err != nil {
			return nil, errors.Unavailable(err)
		}
		u.Role = auth.Role(roleStr)
		users = append(users, u)
	}

	return users, nil
}
