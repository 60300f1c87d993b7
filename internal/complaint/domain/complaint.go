// Package domain owns the complaint aggregate and its status state machine.
package domain

import (
	"time"

	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// Category classifies a complaint at submission time
type Category string

const (
	CategoryInfrastructure Category = "Infrastructure"
	CategorySanitation     Category = "Sanitation"
	CategoryWater          Category = "Water"
	CategoryElectricity    Category = "Electricity"
	CategoryOther          Category = "Other"
)

// Categories lists all valid categories
var Categories = []Category{
	CategoryInfrastructure,
	CategorySanitation,
	CategoryWater,
	CategoryElectricity,
	CategoryOther,
}

// Valid reports whether the category is one of the fixed set
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Priority is set by the submitter and never auto-changed
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether the priority is one of the fixed set
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Status is a complaint's position in its lifecycle
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists all lifecycle states
var Statuses = []Status{StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed}

// Valid reports whether the status is a known lifecycle state
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// transitions is the single source of truth for reachable statuses.
// OPEN -> ASSIGNED is deliberately absent: leaving OPEN happens only through
// assignment, which must carry a staff identity.
var transitions = map[Status][]Status{
	StatusOpen:       {},
	StatusAssigned:   {StatusInProgress, StatusOpen},
	StatusInProgress: {StatusResolved, StatusAssigned},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     {},
}

// CanTransition reports whether target is reachable from current via the
// transition table. Same-status is always allowed (idempotent no-op).
func CanTransition(current, target Status) bool {
	if current == target {
		return true
	}
	for _, next := range transitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// EventType defines types of complaint events
type EventType string

const (
	EventTypeCreated       EventType = "created"
	EventTypeAssigned      EventType = "assigned"
	EventTypeUnassigned    EventType = "unassigned"
	EventTypeStatusChanged EventType = "status_changed"
)

// Event is a domain event recorded on the aggregate and published after a
// successful write.
type Event struct {
	ID          types.ID       `json:"id"`
	ComplaintID types.ID       `json:"complaint_id"`
	Type        EventType      `json:"type"`
	ActorID     types.ID       `json:"actor_id"`
	Data        map[string]any `json:"data,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Complaint is the aggregate root for a citizen-reported issue.
//
// Title, description, category, priority, location and photoRef are set at
// creation and immutable thereafter. Status changes only through the
// transition table; assignedTo changes only through Assign/Unassign.
type Complaint struct {
	ID          types.ID        `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
	Priority    Priority        `json:"priority"`
	Location    *types.Location `json:"location,omitempty"`
	PhotoRef    string          `json:"photo_ref,omitempty"`

	Status      Status    `json:"status"`
	SubmittedBy types.ID  `json:"submitted_by"`
	AssignedTo  *types.ID `json:"assigned_to,omitempty"`

	// Version is the optimistic concurrency token; every successful write
	// increments it.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	domainEvents []Event
}

// NewComplaint creates a complaint in its initial state. Status is forced to
// OPEN and assignedTo to nil regardless of caller input.
func NewComplaint(submittedBy types.ID, title, description string, category Category, priority Priority, location *types.Location, photoRef string) (*Complaint, error) {
	details := map[string]string{}
	if title == "" {
		details["title"] = "required"
	}
	if description == "" {
		details["description"] = "required"
	}
	if submittedBy.IsZero() {
		details["submitted_by"] = "required"
	}
	if !category.Valid() {
		details["category"] = "unknown category"
	}
	if !priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if location != nil {
		if err := location.Validate(); err != nil {
			details["location"] = err.Error()
		}
	}
	if len(details) > 0 {
		return nil, errors.Validation("invalid complaint", details)
	}

	now := time.Now().UTC()
	c := &Complaint{
		ID:          types.NewID(),
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Location:    location,
		PhotoRef:    photoRef,
		Status:      StatusOpen,
		SubmittedBy: submittedBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	c.addEvent(EventTypeCreated, submittedBy, map[string]any{
		"category": category,
		"priority": priority,
	})

	return c, nil
}

// Transition moves the complaint to target if the transition table allows it.
// Requesting the current status is a no-op success. The OPEN -> ASSIGNED edge
// is reachable only through Assign.
func (c *Complaint) Transition(actorID types.ID, target Status) error {
	if !target.Valid() {
		return errors.BadRequest("unknown status: " + string(target))
	}
	if target == c.Status {
		return nil
	}
	if !CanTransition(c.Status, target) {
		return errors.InvalidTransition(string(c.Status), string(target))
	}

	from := c.Status
	c.Status = target
	if target == StatusOpen {
		// Falling back to OPEN is an unassignment; keep the invariant
		// assignedTo != nil <=> status != OPEN.
		prev := c.AssignedTo
		c.AssignedTo = nil
		c.addEvent(EventTypeUnassigned, actorID, map[string]any{"previous_assignee": prev})
	}
	c.UpdatedAt = time.Now().UTC()

	c.addEvent(EventTypeStatusChanged, actorID, map[string]any{
		"from": from,
		"to":   target,
	})

	return nil
}

// Assign binds the complaint to a staff member. On first assignment the
// status advances OPEN -> ASSIGNED; on reassignment the status is kept and
// only the assignee changes, so the invariant never observes an assigned
// complaint without an assignee.
func (c *Complaint) Assign(actorID, staffID types.ID) error {
	if staffID.IsZero() {
		return errors.BadRequest("staff id is required")
	}
	if c.Status == StatusClosed {
		return errors.InvalidTransition(string(StatusClosed), string(StatusAssigned))
	}

	previous := c.AssignedTo
	if previous != nil && *previous == staffID {
		return nil
	}

	c.AssignedTo = &staffID
	if c.Status == StatusOpen {
		c.Status = StatusAssigned
		c.addEvent(EventTypeStatusChanged, actorID, map[string]any{
			"from": StatusOpen,
			"to":   StatusAssigned,
		})
	} else {
		c.addEvent(EventTypeUnassigned, actorID, map[string]any{"previous_assignee": previous})
	}
	c.UpdatedAt = time.Now().UTC()

	c.addEvent(EventTypeAssigned, actorID, map[string]any{"assigned_to": staffID})

	return nil
}

// CheckInvariant verifies assignedTo != nil <=> status != OPEN
func (c *Complaint) CheckInvariant() bool {
	if c.Status == StatusOpen {
		return c.AssignedTo == nil
	}
	return c.AssignedTo != nil
}

// DomainEvents returns and clears the pending domain events
func (c *Complaint) DomainEvents() []Event {
	events := c.domainEvents
	c.domainEvents = nil
	return events
}

func (c *Complaint) addEvent(eventType EventType, actorID types.ID, data map[string]any) {
	c.domainEvents = append(c.domainEvents, Event{
		ID:          types.NewID(),
		ComplaintID: c.ID,
		Type:        eventType,
		ActorID:     actorID,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	})
}
