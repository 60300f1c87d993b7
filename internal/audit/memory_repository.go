package audit

import (
	"context"
	"sync"

	"github.com/civicdesk/platform/internal/shared/metrics"
	"github.com/civicdesk/platform/internal/shared/types"
)

// MemoryRepository is an in-memory audit log. It backs deployments without an
// event store configured; entries do not survive a restart.
type MemoryRepository struct {
	mu       sync.Mutex
	entries  []*Entry
	lastHash string
	sequence int64
}

// NewMemoryRepository creates a new in-memory audit repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Initialize is a no-op; a fresh repository starts an empty chain
func (r *MemoryRepository) Initialize(ctx context.Context) error {
	return nil
}

// Append appends a new audit entry (thread-safe)
func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sequence++
	entry.Sequence = r.sequence
	entry.PrevHash = r.lastHash
	entry.Hash = entry.ComputeHash()

	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash
	metrics.RecordAuditEntry()

	return nil
}

// List lists audit entries with filters, newest first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entries []*Entry
	total := 0

	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if !matchesFilter(entry, filter) {
			continue
		}

		total++

		if filter.Offset > 0 && total <= filter.Offset {
			continue
		}
		if filter.Limit > 0 && len(entries) >= filter.Limit {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, total, nil
}

// GetByResource gets audit entries for a specific resource
func (r *MemoryRepository) GetByResource(ctx context.Context, resourceType string, resourceID types.ID, limit int) ([]*Entry, error) {
	entries, _, err := r.List(ctx, ListFilter{
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Limit:        limit,
	})
	return entries, err
}

// VerifyChain verifies the integrity of the audit chain
func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int, includeDetails bool) (*VerifyResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Newest first, capped to limit
	count := len(r.entries)
	if limit > 0 && limit < count {
		count = limit
	}

	entries := make([]*Entry, 0, count)
	for i := len(r.entries) - 1; i >= len(r.entries)-count; i-- {
		entries = append(entries, r.entries[i])
	}

	return verifyEntries(entries, includeDetails), nil
}

// GetLastHash returns the last hash in the chain
func (r *MemoryRepository) GetLastHash() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastHash
}

// GetSequence returns the current sequence number
func (r *MemoryRepository) GetSequence() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sequence
}
