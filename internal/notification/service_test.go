package notification

import (
	"context"
	"testing"
	"time"

	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/types"
)

func newTestService(t *testing.T, push, email Provider) *Service {
	t.Helper()

	s := NewService(push, email, ServiceConfig{
		Workers:       2,
		BufferSize:    16,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

// TestDispatch tests asynchronous delivery through a provider
func TestDispatch(t *testing.T) {
	push := NewMockProvider()
	s := newTestService(t, push, nil)

	staffID := types.NewID()
	err := s.Enqueue(context.Background(), &Notification{
		Type:        TypePush,
		RecipientID: staffID,
		Subject:     "hello",
		Body:        "world",
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(push.Sent()) == 1 })

	sent := push.Sent()[0]
	if sent.RecipientID != staffID {
		t.Errorf("Expected recipient %s, got %s", staffID, sent.RecipientID)
	}
	if sent.Status != StatusSent {
		t.Errorf("Expected status %s, got %s", StatusSent, sent.Status)
	}
}

// TestNotifyAssigned tests the assignment notification shape
func TestNotifyAssigned(t *testing.T) {
	push := NewMockProvider()
	s := newTestService(t, push, nil)

	c, err := domain.NewComplaint(types.NewID(), "Flooded underpass", "Underpass on 5th flooded", domain.CategoryWater, domain.PriorityHigh, nil, "")
	if err != nil {
		t.Fatalf("NewComplaint failed: %v", err)
	}

	staffID := types.NewID()
	if err := s.NotifyAssigned(context.Background(), staffID, c); err != nil {
		t.Fatalf("NotifyAssigned failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(push.Sent()) == 1 })

	sent := push.Sent()[0]
	if sent.RecipientID != staffID {
		t.Error("Expected notification addressed to the assignee")
	}
	if sent.Data["complaint_id"] != c.ID {
		t.Error("Expected complaint ID in notification data")
	}
}

// TestRetryThenFail tests that failures retry and eventually mark failed
func TestRetryThenFail(t *testing.T) {
	push := NewMockProvider()
	push.SetFailOnSend(true)
	s := newTestService(t, push, nil)

	notif := &Notification{
		Type:        TypePush,
		RecipientID: types.NewID(),
		Subject:     "doomed",
	}
	if err := s.Enqueue(context.Background(), notif); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return s.GetStats().TotalFailed == 1
	})

	if notif.RetryCount != 2 {
		t.Errorf("Expected 2 attempts, got %d", notif.RetryCount)
	}
	if notif.Status != StatusFailed {
		t.Errorf("Expected status %s, got %s", StatusFailed, notif.Status)
	}
}

// TestUnconfiguredChannel tests dispatch to a channel with no provider
func TestUnconfiguredChannel(t *testing.T) {
	s := newTestService(t, nil, nil)

	if err := s.Enqueue(context.Background(), &Notification{
		Type:        TypeEmail,
		RecipientID: types.NewID(),
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return s.GetStats().TotalFailed == 1
	})
}

// TestInAppInbox tests in-app notifications land in the recipient inbox
func TestInAppInbox(t *testing.T) {
	s := newTestService(t, nil, nil)

	recipient := types.NewID()
	if err := s.Enqueue(context.Background(), &Notification{
		Type:        TypeInApp,
		RecipientID: recipient,
		Subject:     "Complaint status updated",
	}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(s.Inbox(recipient)) == 1 })

	if len(s.Inbox(types.NewID())) != 0 {
		t.Error("Expected empty inbox for other recipients")
	}
}

// TestBufferFull tests enqueue rejection when the buffer is saturated
func TestBufferFull(t *testing.T) {
	push := NewMockProvider()
	push.SetSendDelay(50 * time.Millisecond)

	s := NewService(push, nil, ServiceConfig{
		Workers:       1,
		BufferSize:    1,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	})
	// Not started: nothing drains the channel

	if err := s.Enqueue(context.Background(), &Notification{Type: TypePush, RecipientID: types.NewID()}); err != nil {
		t.Fatalf("First enqueue should fit: %v", err)
	}
	if err := s.Enqueue(context.Background(), &Notification{Type: TypePush, RecipientID: types.NewID()}); err == nil {
		t.Error("Expected buffer-full error")
	}
}
