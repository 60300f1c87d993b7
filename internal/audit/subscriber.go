package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/civicdesk/platform/internal/shared/events"
	"github.com/civicdesk/platform/internal/shared/types"
)

// Subscriber listens to domain events and appends audit entries
type Subscriber struct {
	repo Repository
	bus  events.EventBus
}

// NewSubscriber creates a new audit subscriber
func NewSubscriber(repo Repository, bus events.EventBus) *Subscriber {
	return &Subscriber{repo: repo, bus: bus}
}

// Start subscribes to all audited event streams
func (s *Subscriber) Start(ctx context.Context) error {
	patterns := []struct {
		pattern      string
		consumerName string
	}{
		{"complaint.*", "audit-complaint-subscriber"},
		{"identity.*", "audit-identity-subscriber"},
	}

	for _, p := range patterns {
		if err := s.bus.Subscribe(ctx, p.pattern, p.consumerName, s.handleEvent); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", p.pattern, err)
		}
	}

	return nil
}

func (s *Subscriber) handleEvent(ctx context.Context, event events.Event) error {
	entry := s.eventToEntry(event)
	if entry == nil {
		return nil
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// eventToEntry converts a domain event to an audit entry. The event type's
// prefix ("complaint.assigned" -> "complaint") names the resource type.
func (s *Subscriber) eventToEntry(event events.Event) *Entry {
	parts := strings.SplitN(event.Type, ".", 2)
	if len(parts) < 2 {
		return nil
	}

	resourceType := parts[0]

	var resourceID *types.ID
	var changes map[string]any
	if data, ok := event.Data.(map[string]any); ok {
		changes = data

		for _, field := range []string{resourceType + "_id", "user_id", "id"} {
			idVal, ok := data[field]
			if !ok {
				continue
			}
			if idStr, ok := idVal.(string); ok {
				if id, err := types.ParseID(idStr); err == nil {
					resourceID = &id
					break
				}
			}
			if id, ok := idVal.(types.ID); ok {
				resourceID = &id
				break
			}
		}
	}

	actorType := ActorTypeSystem
	switch event.ActorRole {
	case "citizen":
		actorType = ActorTypeCitizen
	case "staff":
		actorType = ActorTypeStaff
	case "admin":
		actorType = ActorTypeAdmin
	}

	entry := &Entry{
		ID: types.NewID(),
		// Truncate for deterministic hash verification after storage
		Timestamp:    event.Timestamp.UTC().Truncate(time.Microsecond),
		ActorType:    actorType,
		ActorID:      event.ActorID,
		Action:       event.Type,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
	}

	if event.CorrelationID != "" {
		entry.CorrelationID = event.CorrelationID
	}

	return entry
}
