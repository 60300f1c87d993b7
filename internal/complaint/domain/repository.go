package domain

import (
	"context"

	"github.com/civicdesk/platform/internal/shared/types"
)

// Repository defines the interface for complaint persistence. Implementations
// translate store-layer failures into typed errors; callers never see raw
// driver errors.
type Repository interface {
	// Save inserts a new complaint
	Save(ctx context.Context, c *Complaint) error

	// FindByID loads a complaint by id
	FindByID(ctx context.Context, id types.ID) (*Complaint, error)

	// UpdateConditional writes the complaint only if the stored row still has
	// the expected status and version; a mismatch returns Conflict. This is
	// the single atomic update every mutation goes through.
	UpdateConditional(ctx context.Context, c *Complaint, expectedStatus Status, expectedVersion int64) error

	// List loads complaints matching the filter
	List(ctx context.Context, filter ListFilter) ([]Complaint, int, error)
}

// ListFilter scopes and filters a listing. Visibility scoping (SubmittedBy /
// AssignedTo) is set by the service from the capability table, never by the
// caller directly.
type ListFilter struct {
	SubmittedBy *types.ID
	AssignedTo  *types.ID

	Status   *Status
	Priority *Priority
	Category *Category
	Search   string

	Limit     int
	Offset    int
	OrderBy   string
	OrderDesc bool
}
