package audit

import (
	"context"
	"testing"
	"time"

	"github.com/civicdesk/platform/internal/shared/events"
	"github.com/civicdesk/platform/internal/shared/types"
)

func appendEntries(t *testing.T, repo Repository, n int) []*Entry {
	t.Helper()

	entries := make([]*Entry, 0, n)
	for i := 0; i < n; i++ {
		resourceID := types.NewID()
		entry := NewEntry(ActorTypeAdmin, types.NewID(), "complaint.assigned", "complaint", &resourceID, map[string]any{"n": i}, "")
		if err := repo.Append(context.Background(), entry); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestEntryHash tests content hashing
func TestEntryHash(t *testing.T) {
	resourceID := types.NewID()
	entry := NewEntry(ActorTypeStaff, types.NewID(), "complaint.status_changed", "complaint", &resourceID, map[string]any{
		"from": "ASSIGNED",
		"to":   "IN_PROGRESS",
	}, "prev123")

	if entry.Hash == "" {
		t.Fatal("Expected hash to be set")
	}
	if !entry.VerifyHash() {
		t.Error("Fresh entry should verify")
	}

	entry.Action = "complaint.created"
	if entry.VerifyHash() {
		t.Error("Tampered entry should not verify")
	}
}

// TestHashDeterminism ensures canonical JSON makes hashing map-order independent
func TestHashDeterminism(t *testing.T) {
	resourceID := types.NewID()
	entry := NewEntry(ActorTypeSystem, types.NewID(), "complaint.created", "complaint", &resourceID, map[string]any{
		"zebra":  1,
		"alpha":  2,
		"nested": map[string]any{"b": true, "a": false},
	}, "")

	first := entry.ComputeHash()
	for i := 0; i < 20; i++ {
		if got := entry.ComputeHash(); got != first {
			t.Fatalf("Hash not deterministic: %s != %s", got, first)
		}
	}
}

// TestChainAppend tests that entries link into a chain
func TestChainAppend(t *testing.T) {
	repo := NewMemoryRepository()
	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	entries := appendEntries(t, repo, 5)

	if entries[0].PrevHash != "" {
		t.Error("First entry should have empty prev_hash")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].PrevHash != entries[i-1].Hash {
			t.Errorf("Entry %d not chained to entry %d", i, i-1)
		}
		if entries[i].Sequence != int64(i+1) {
			t.Errorf("Expected sequence %d, got %d", i+1, entries[i].Sequence)
		}
	}

	if repo.GetLastHash() != entries[4].Hash {
		t.Error("Last hash not tracked")
	}
	if repo.GetSequence() != 5 {
		t.Errorf("Expected sequence 5, got %d", repo.GetSequence())
	}
}

// TestVerifyChain tests chain verification and tamper detection
func TestVerifyChain(t *testing.T) {
	repo := NewMemoryRepository()
	appendEntries(t, repo, 10)

	result, err := repo.VerifyChain(context.Background(), 100, false)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("Expected valid chain, violations: %v", result.Violations)
	}
	if result.Checked != 10 {
		t.Errorf("Expected 10 checked, got %d", result.Checked)
	}

	// Tamper with one entry
	repo.entries[4].Action = "complaint.deleted"

	result, err = repo.VerifyChain(context.Background(), 100, true)
	if err != nil {
		t.Fatalf("VerifyChain failed: %v", err)
	}
	if result.Valid {
		t.Error("Expected tampering to be detected")
	}
	if result.ContentInvalid != 1 {
		t.Errorf("Expected 1 content violation, got %d", result.ContentInvalid)
	}
}

// TestListFilters tests entry listing
func TestListFilters(t *testing.T) {
	repo := NewMemoryRepository()

	actorA := types.NewID()
	actorB := types.NewID()
	resource := types.NewID()

	entryA := NewEntry(ActorTypeCitizen, actorA, "complaint.created", "complaint", &resource, nil, "")
	entryB := NewEntry(ActorTypeAdmin, actorB, "complaint.assigned", "complaint", &resource, nil, "")
	entryC := NewEntry(ActorTypeCitizen, actorA, "identity.registered", "identity", nil, nil, "")

	for _, e := range []*Entry{entryA, entryB, entryC} {
		if err := repo.Append(context.Background(), e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	t.Run("By actor", func(t *testing.T) {
		entries, total, err := repo.List(context.Background(), ListFilter{ActorID: &actorA})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 2 || len(entries) != 2 {
			t.Errorf("Expected 2 entries, got %d", total)
		}
	})

	t.Run("By action", func(t *testing.T) {
		entries, total, err := repo.List(context.Background(), ListFilter{Action: "complaint.assigned"})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if total != 1 || entries[0].ID != entryB.ID {
			t.Errorf("Expected the assignment entry, got %d", total)
		}
	})

	t.Run("By resource", func(t *testing.T) {
		entries, err := repo.GetByResource(context.Background(), "complaint", resource, 10)
		if err != nil {
			t.Fatalf("GetByResource failed: %v", err)
		}
		if len(entries) != 2 {
			t.Errorf("Expected 2 entries, got %d", len(entries))
		}
	})

	t.Run("Newest first", func(t *testing.T) {
		entries, _, err := repo.List(context.Background(), ListFilter{})
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if entries[0].ID != entryC.ID {
			t.Error("Expected newest entry first")
		}
	})
}

// TestSubscriberConversion tests turning domain events into audit entries
func TestSubscriberConversion(t *testing.T) {
	s := NewSubscriber(NewMemoryRepository(), nil)

	complaintID := types.NewID()
	actorID := types.NewID()

	event := events.Event{
		ID:        "evt-1",
		Type:      "complaint.assigned",
		Source:    "complaint",
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
		ActorRole: "admin",
		Data: map[string]any{
			"complaint_id": complaintID.String(),
			"assigned_to":  types.NewID().String(),
		},
	}

	entry := s.eventToEntry(event)
	if entry == nil {
		t.Fatal("Expected an entry")
	}

	if entry.Action != "complaint.assigned" {
		t.Errorf("Expected action complaint.assigned, got %s", entry.Action)
	}
	if entry.ResourceType != "complaint" {
		t.Errorf("Expected resource type complaint, got %s", entry.ResourceType)
	}
	if entry.ResourceID == nil || *entry.ResourceID != complaintID {
		t.Error("Expected complaint ID extracted as resource ID")
	}
	if entry.ActorType != ActorTypeAdmin {
		t.Errorf("Expected actor type admin, got %s", entry.ActorType)
	}
	if entry.ActorID != actorID {
		t.Error("Expected actor ID carried over")
	}

	t.Run("Unqualified event types are skipped", func(t *testing.T) {
		if got := s.eventToEntry(events.Event{Type: "ping"}); got != nil {
			t.Error("Expected nil for event type without a resource prefix")
		}
	})
}
