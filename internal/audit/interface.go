package audit

import (
	"context"

	"github.com/civicdesk/platform/internal/shared/types"
)

// Repository defines the interface for append-only audit storage
type Repository interface {
	// Initialize loads initial state (last hash, sequence)
	Initialize(ctx context.Context) error

	// Append appends a new audit entry, chaining it onto the last hash
	Append(ctx context.Context, entry *Entry) error

	// List lists audit entries with filters, newest first
	List(ctx context.Context, filter ListFilter) ([]*Entry, int, error)

	// GetByResource gets audit entries for a specific resource
	GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error)

	// VerifyChain verifies the integrity of the audit chain
	VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error)

	// GetLastHash returns the last hash in the chain
	GetLastHash() string

	// GetSequence returns the current sequence number
	GetSequence() int64
}

// Ensure implementations satisfy the interface
var (
	_ Repository = (*KurrentDBRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
