package events

import "context"

// EventBus defines the interface for event publishing and subscription
type EventBus interface {
	// Publish publishes an event to the bus
	Publish(ctx context.Context, event Event) error

	// Subscribe creates a subscription to events matching a pattern
	Subscribe(ctx context.Context, pattern string, consumerName string, handler Handler) error

	// Close closes the event bus connection
	Close()

	// Health checks the event bus connection
	Health() error
}

// Handler is a function that handles an event
type Handler func(ctx context.Context, event Event) error

// Ensure Bus implements EventBus
var _ EventBus = (*Bus)(nil)
