package notification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Provider delivers a notification over one channel
type Provider interface {
	Send(ctx context.Context, notification *Notification) error
}

// LogProvider writes notifications to the process log. It stands in for a
// real push gateway in environments without one configured.
type LogProvider struct {
	prefix string
}

// NewLogProvider creates a new log provider
func NewLogProvider(prefix string) *LogProvider {
	return &LogProvider{prefix: prefix}
}

// Send logs the notification
func (p *LogProvider) Send(ctx context.Context, notification *Notification) error {
	log.Printf("[%s] to=%s subject=%q body=%q", p.prefix, notification.RecipientID, notification.Subject, notification.Body)
	return nil
}

// MockProvider is an in-memory provider for testing
type MockProvider struct {
	mu         sync.RWMutex
	sent       []*Notification
	failOnSend bool
	sendDelay  time.Duration
}

// NewMockProvider creates a new mock provider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Send records the notification (mock implementation)
func (p *MockProvider) Send(ctx context.Context, notification *Notification) error {
	if p.sendDelay > 0 {
		time.Sleep(p.sendDelay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}

	p.sent = append(p.sent, notification)
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockProvider) SetFailOnSend(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failOnSend = fail
}

// SetSendDelay sets artificial delay for Send
func (p *MockProvider) SetSendDelay(delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sendDelay = delay
}

// Sent returns all delivered notifications
func (p *MockProvider) Sent() []*Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]*Notification, len(p.sent))
	copy(result, p.sent)
	return result
}
