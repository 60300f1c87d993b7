package domain

import (
	"testing"

	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

func newTestComplaint(t *testing.T) *Complaint {
	t.Helper()

	c, err := NewComplaint(types.NewID(), "Broken streetlight", "The light on Elm St is out", CategoryInfrastructure, PriorityMedium, nil, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return c
}

// TestNewComplaint tests creating a new complaint
func TestNewComplaint(t *testing.T) {
	submitter := types.NewID()

	c, err := NewComplaint(submitter, "Pothole", "Deep pothole on Main St", CategoryInfrastructure, PriorityHigh, nil, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if c.ID.IsZero() {
		t.Error("Expected non-zero ID")
	}

	if c.Status != StatusOpen {
		t.Errorf("Expected status %s, got %s", StatusOpen, c.Status)
	}

	if c.AssignedTo != nil {
		t.Error("Expected new complaint to be unassigned")
	}

	if c.SubmittedBy != submitter {
		t.Errorf("Expected submitter %s, got %s", submitter, c.SubmittedBy)
	}

	if c.Version != 1 {
		t.Errorf("Expected version 1, got %d", c.Version)
	}

	if !c.CheckInvariant() {
		t.Error("Invariant violated on new complaint")
	}

	events := c.DomainEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventTypeCreated {
		t.Errorf("Expected event type %s, got %s", EventTypeCreated, events[0].Type)
	}
}

// TestNewComplaintValidation tests validation when creating a complaint
func TestNewComplaintValidation(t *testing.T) {
	submitter := types.NewID()

	tests := []struct {
		name        string
		submitter   types.ID
		title       string
		description string
		category    Category
		priority    Priority
		location    *types.Location
		expectError bool
	}{
		{"Empty title", submitter, "", "desc", CategoryWater, PriorityLow, nil, true},
		{"Empty description", submitter, "title", "", CategoryWater, PriorityLow, nil, true},
		{"Zero submitter", types.ID(""), "title", "desc", CategoryWater, PriorityLow, nil, true},
		{"Unknown category", submitter, "title", "desc", Category("Roads"), PriorityLow, nil, true},
		{"Unknown priority", submitter, "title", "desc", CategoryWater, Priority("Critical"), nil, true},
		{"Out-of-range location", submitter, "title", "desc", CategoryWater, PriorityLow, &types.Location{Latitude: 95, Longitude: 0}, true},
		{"Valid complaint", submitter, "title", "desc", CategoryWater, PriorityLow, &types.Location{Latitude: 44.8, Longitude: 20.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComplaint(tt.submitter, tt.title, tt.description, tt.category, tt.priority, tt.location, "")

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

// TestTransitionTable exhaustively checks reachability between all statuses
func TestTransitionTable(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusOpen:       {},
		StatusAssigned:   {StatusInProgress: true, StatusOpen: true},
		StatusInProgress: {StatusResolved: true, StatusAssigned: true},
		StatusResolved:   {StatusClosed: true, StatusInProgress: true},
		StatusClosed:     {},
	}

	for _, from := range Statuses {
		for _, to := range Statuses {
			want := from == to || allowed[from][to]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

// TestTransition tests status transitions on the aggregate
func TestTransition(t *testing.T) {
	actor := types.NewID()
	staff := types.NewID()

	t.Run("Same status is a no-op", func(t *testing.T) {
		c := newTestComplaint(t)
		c.DomainEvents()

		if err := c.Transition(actor, StatusOpen); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(c.DomainEvents()) != 0 {
			t.Error("Expected no events for no-op transition")
		}
	})

	t.Run("Unreachable transition is rejected", func(t *testing.T) {
		c := newTestComplaint(t)

		err := c.Transition(actor, StatusResolved)
		if err == nil {
			t.Fatal("Expected error for OPEN -> RESOLVED")
		}

		appErr, ok := err.(*errors.AppError)
		if !ok || appErr.Code != "INVALID_TRANSITION" {
			t.Errorf("Expected INVALID_TRANSITION, got %v", err)
		}
	})

	t.Run("Transition to OPEN clears assignee", func(t *testing.T) {
		c := newTestComplaint(t)
		if err := c.Assign(actor, staff); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		c.DomainEvents()

		if err := c.Transition(actor, StatusOpen); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if c.AssignedTo != nil {
			t.Error("Expected assignee cleared when returning to OPEN")
		}
		if !c.CheckInvariant() {
			t.Error("Invariant violated after returning to OPEN")
		}

		events := c.DomainEvents()
		sawUnassigned := false
		for _, e := range events {
			if e.Type == EventTypeUnassigned {
				sawUnassigned = true
			}
		}
		if !sawUnassigned {
			t.Error("Expected unassigned event")
		}
	})

	t.Run("Full lifecycle preserves invariant", func(t *testing.T) {
		c := newTestComplaint(t)
		if err := c.Assign(actor, staff); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}

		for _, target := range []Status{StatusInProgress, StatusResolved, StatusClosed} {
			if err := c.Transition(actor, target); err != nil {
				t.Fatalf("Transition to %s failed: %v", target, err)
			}
			if !c.CheckInvariant() {
				t.Errorf("Invariant violated at %s", target)
			}
		}

		if err := c.Transition(actor, StatusResolved); err == nil {
			t.Error("Expected CLOSED to be terminal")
		}
	})

	t.Run("Unknown status is rejected", func(t *testing.T) {
		c := newTestComplaint(t)
		if err := c.Transition(actor, Status("ARCHIVED")); err == nil {
			t.Error("Expected error for unknown status")
		}
	})
}

// TestAssign tests assignment behavior
func TestAssign(t *testing.T) {
	admin := types.NewID()

	t.Run("First assignment advances OPEN to ASSIGNED", func(t *testing.T) {
		c := newTestComplaint(t)
		staff := types.NewID()
		c.DomainEvents()

		if err := c.Assign(admin, staff); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		if c.Status != StatusAssigned {
			t.Errorf("Expected status %s, got %s", StatusAssigned, c.Status)
		}
		if c.AssignedTo == nil || *c.AssignedTo != staff {
			t.Error("Expected complaint assigned to staff")
		}
		if !c.CheckInvariant() {
			t.Error("Invariant violated after assignment")
		}

		events := c.DomainEvents()
		if len(events) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(events))
		}
		if events[0].Type != EventTypeStatusChanged || events[1].Type != EventTypeAssigned {
			t.Errorf("Unexpected event sequence: %s, %s", events[0].Type, events[1].Type)
		}
	})

	t.Run("Reassignment keeps status", func(t *testing.T) {
		c := newTestComplaint(t)
		first := types.NewID()
		second := types.NewID()

		if err := c.Assign(admin, first); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		if err := c.Transition(admin, StatusInProgress); err != nil {
			t.Fatalf("Transition failed: %v", err)
		}
		c.DomainEvents()

		if err := c.Assign(admin, second); err != nil {
			t.Fatalf("Reassign failed: %v", err)
		}

		if c.Status != StatusInProgress {
			t.Errorf("Expected status kept at %s, got %s", StatusInProgress, c.Status)
		}
		if c.AssignedTo == nil || *c.AssignedTo != second {
			t.Error("Expected assignee swapped")
		}
	})

	t.Run("Assigning the current assignee is a no-op", func(t *testing.T) {
		c := newTestComplaint(t)
		staff := types.NewID()

		if err := c.Assign(admin, staff); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		c.DomainEvents()

		if err := c.Assign(admin, staff); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(c.DomainEvents()) != 0 {
			t.Error("Expected no events for no-op assignment")
		}
	})

	t.Run("Closed complaints cannot be assigned", func(t *testing.T) {
		c := newTestComplaint(t)
		staff := types.NewID()

		if err := c.Assign(admin, staff); err != nil {
			t.Fatalf("Assign failed: %v", err)
		}
		for _, target := range []Status{StatusInProgress, StatusResolved, StatusClosed} {
			if err := c.Transition(admin, target); err != nil {
				t.Fatalf("Transition to %s failed: %v", target, err)
			}
		}

		if err := c.Assign(admin, types.NewID()); err == nil {
			t.Error("Expected error assigning a closed complaint")
		}
	})

	t.Run("Zero staff ID is rejected", func(t *testing.T) {
		c := newTestComplaint(t)
		if err := c.Assign(admin, types.ID("")); err == nil {
			t.Error("Expected error for zero staff ID")
		}
	})
}
