package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts a new complaint
func (r *PostgresRepository) Save(ctx context.Context, c *domain.Complaint) error {
	query := `
		INSERT INTO complaints (
			id, title, description, category, priority, status,
			latitude, longitude, address, photo_ref,
			submitted_by, assigned_to, version,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	lat, lon, addr := locationColumns(c.Location)

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Title, c.Description, c.Category, c.Priority, c.Status,
		lat, lon, addr, nullable(c.PhotoRef),
		c.SubmittedBy, c.AssignedTo, c.Version,
		c.CreatedAt, c.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("complaint already exists")
		}
		return errors.Unavailable(err)
	}

	return nil
}

// FindByID loads a complaint by id
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Complaint, error) {
	query := selectColumns + ` FROM complaints WHERE id = $1`

	c, err := scanComplaint(r.pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("complaint", id.String())
	}
	if err != nil {
		return nil, errors.Unavailable(err)
	}

	return c, nil
}

// UpdateConditional writes the complaint only if the stored row still carries
// the expected status and version. The version bump and the predicate live in
// one statement so concurrent writers cannot both succeed.
func (r *PostgresRepository) UpdateConditional(ctx context.Context, c *domain.Complaint, expectedStatus domain.Status, expectedVersion int64) error {
	query := `
		UPDATE complaints SET
			status = $2, assigned_to = $3, priority = $4,
			version = version + 1, updated_at = $5
		WHERE id = $1 AND status = $6 AND version = $7`

	result, err := r.pool.Exec(ctx, query,
		c.ID, c.Status, c.AssignedTo, c.Priority,
		c.UpdatedAt, expectedStatus, expectedVersion,
	)
	if err != nil {
		return errors.Unavailable(err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		probe := r.pool.QueryRow(ctx, `SELECT true FROM complaints WHERE id = $1`, c.ID)
		if probeErr := probe.Scan(&exists); probeErr == pgx.ErrNoRows {
			return errors.NotFound("complaint", c.ID.String())
		}
		return errors.Conflict("complaint was modified concurrently")
	}

	c.Version = expectedVersion + 1
	return nil
}

// List loads complaints matching the filter, newest first by default
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Complaint, int, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.SubmittedBy != nil {
		conditions = append(conditions, fmt.Sprintf("submitted_by = $%d", argNum))
		args = append(args, *filter.SubmittedBy)
		argNum++
	}

	if filter.AssignedTo != nil {
		conditions = append(conditions, fmt.Sprintf("assigned_to = $%d", argNum))
		args = append(args, *filter.AssignedTo)
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, *filter.Status)
		argNum++
	}

	if filter.Priority != nil {
		conditions = append(conditions, fmt.Sprintf("priority = $%d", argNum))
		args = append(args, *filter.Priority)
		argNum++
	}

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *filter.Category)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR address ILIKE $%d)", argNum, argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM complaints %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Unavailable(err)
	}

	orderBy := "created_at"
	if _, ok := sortableColumns[filter.OrderBy]; ok {
		orderBy = filter.OrderBy
	}
	orderDir := "ASC"
	if filter.OrderDesc {
		orderDir = "DESC"
	}

	limit := 50
	if filter.Limit > 0 && filter.Limit <= 100 {
		limit = filter.Limit
	}

	query := fmt.Sprintf(`%s
		FROM complaints
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`, selectColumns, whereClause, orderBy, orderDir, argNum, argNum+1)

	args = append(args, limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Unavailable(err)
	}
	defer rows.Close()

	var complaints []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, errors.Unavailable(err)
		}
		complaints = append(complaints, *c)
	}

	return complaints, total, nil
}

const selectColumns = `
	SELECT id, title, description, category, priority, status,
		latitude, longitude, address, photo_ref,
		submitted_by, assigned_to, version,
		created_at, updated_at`

// sortableColumns is the allowlist for caller-supplied ordering
var sortableColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"priority":   {},
	"status":     {},
	"category":   {},
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	c := &domain.Complaint{}
	var lat, lon *float64
	var addr, photoRef *string

	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.Category, &c.Priority, &c.Status,
		&lat, &lon, &addr, &photoRef,
		&c.SubmittedBy, &c.AssignedTo, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lon != nil {
		c.Location = &types.Location{Latitude: *lat, Longitude: *lon}
		if addr != nil {
			c.Location.Address = *addr
		}
	}
	if photoRef != nil {
		c.PhotoRef = *photoRef
	}

	return c, nil
}

func locationColumns(loc *types.Location) (lat, lon *float64, addr *string) {
	if loc == nil {
		return nil, nil, nil
	}
	lat, lon = &loc.Latitude, &loc.Longitude
	if loc.Address != "" {
		addr = &loc.Address
	}
	return lat, lon, addr
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
