// Package notification dispatches notifications asynchronously through a
// bounded worker pool. Enqueueing never blocks the caller and delivery
// failures are retried with a delay before the notification is marked failed.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/metrics"
	"github.com/civicdesk/platform/internal/shared/types"
)

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultServiceConfig returns default configuration
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Workers:       4,
		BufferSize:    1000,
		RetryAttempts: 3,
		RetryDelay:    30 * time.Second,
	}
}

// Service is the notification dispatch service
type Service struct {
	pushProvider  Provider
	emailProvider Provider

	mu    sync.RWMutex
	inbox map[types.ID][]*Notification
	stats Stats

	notifCh chan *Notification
	workers int

	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	config ServiceConfig
}

// NewService creates a new notification service. Either provider may be nil;
// notifications for an unconfigured channel fail dispatch.
func NewService(pushProvider, emailProvider Provider, config ServiceConfig) *Service {
	if config.Workers <= 0 {
		config.Workers = DefaultServiceConfig().Workers
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultServiceConfig().BufferSize
	}

	return &Service{
		pushProvider:  pushProvider,
		emailProvider: emailProvider,
		inbox:         make(map[types.ID][]*Notification),
		notifCh:       make(chan *Notification, config.BufferSize),
		workers:       config.Workers,
		stopCh:        make(chan struct{}),
		config:        config,
	}
}

// Start starts the dispatch workers
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("service already started")
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	return nil
}

// Stop stops the dispatch workers
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("service not started")
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	return nil
}

// NotifyAssigned tells a staff member they were assigned a complaint
func (s *Service) NotifyAssigned(ctx context.Context, staffID types.ID, c *domain.Complaint) error {
	return s.Enqueue(ctx, &Notification{
		Type:        TypePush,
		RecipientID: staffID,
		Subject:     "New complaint assigned",
		Body:        fmt.Sprintf("You have been assigned complaint %q", c.Title),
		Data: map[string]any{
			"complaint_id": c.ID,
			"category":     c.Category,
			"priority":     c.Priority,
		},
	})
}

// NotifyStatusChanged tells the submitter their complaint moved
func (s *Service) NotifyStatusChanged(ctx context.Context, c *domain.Complaint, from domain.Status) error {
	return s.Enqueue(ctx, &Notification{
		Type:        TypeInApp,
		RecipientID: c.SubmittedBy,
		Subject:     "Complaint status updated",
		Body:        fmt.Sprintf("Your complaint %q is now %s", c.Title, c.Status),
		Data: map[string]any{
			"complaint_id": c.ID,
			"from_status":  from,
			"to_status":    c.Status,
		},
	})
}

// Enqueue submits a notification for asynchronous dispatch
func (s *Service) Enqueue(ctx context.Context, notification *Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}
	notification.UpdatedAt = now
	notification.Status = StatusPending

	s.mu.Lock()
	s.stats.TotalQueued++
	s.mu.Unlock()

	select {
	case s.notifCh <- notification:
		return nil
	default:
		return fmt.Errorf("notification buffer full")
	}
}

// Inbox returns the stored in-app notifications for a recipient
func (s *Service) Inbox(recipientID types.ID) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.inbox[recipientID]
	result := make([]*Notification, len(entries))
	copy(result, entries)
	return result
}

// GetStats returns a snapshot of dispatch statistics
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.stats
	snapshot.ByType = make(map[Type]int64, len(s.stats.ByType))
	for t, n := range s.stats.ByType {
		snapshot.ByType[t] = n
	}
	return snapshot
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case notif := <-s.notifCh:
			s.process(ctx, notif)
		}
	}
}

func (s *Service) process(ctx context.Context, notif *Notification) {
	var err error

	switch notif.Type {
	case TypePush:
		if s.pushProvider != nil {
			err = s.pushProvider.Send(ctx, notif)
		} else {
			err = fmt.Errorf("push provider not configured")
		}
	case TypeEmail:
		if s.emailProvider != nil {
			err = s.emailProvider.Send(ctx, notif)
		} else {
			err = fmt.Errorf("email provider not configured")
		}
	case TypeInApp:
		s.mu.Lock()
		s.inbox[notif.RecipientID] = append(s.inbox[notif.RecipientID], notif)
		s.mu.Unlock()
	default:
		err = fmt.Errorf("unknown notification type: %s", notif.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		notif.ErrorMessage = err.Error()
		notif.RetryCount++
		now := time.Now().UTC()
		notif.LastRetryAt = &now

		if notif.RetryCount >= s.config.RetryAttempts {
			notif.Status = StatusFailed
			s.recordOutcome(notif, false)
		} else {
			go func() {
				time.Sleep(s.config.RetryDelay)
				select {
				case s.notifCh <- notif:
				case <-s.stopCh:
				}
			}()
		}
	} else {
		now := time.Now().UTC()
		notif.SentAt = &now
		notif.Status = StatusSent
		s.recordOutcome(notif, true)
	}

	notif.UpdatedAt = time.Now().UTC()
}

// recordOutcome must be called with s.mu held
func (s *Service) recordOutcome(notif *Notification, success bool) {
	if s.stats.ByType == nil {
		s.stats.ByType = make(map[Type]int64)
	}
	s.stats.ByType[notif.Type]++

	if success {
		s.stats.TotalDelivered++
	} else {
		s.stats.TotalFailed++
	}
	metrics.RecordNotification(string(notif.Type), success)

	delivered := s.stats.TotalDelivered + s.stats.TotalFailed
	if delivered > 0 {
		s.stats.DeliveryRate = float64(s.stats.TotalDelivered) / float64(delivered)
	}
}
