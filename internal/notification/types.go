package notification

import (
	"time"

	"github.com/civicdesk/platform/internal/shared/types"
)

// Type represents the notification channel
type Type string

const (
	TypePush  Type = "push"
	TypeEmail Type = "email"
	TypeInApp Type = "in_app"
)

// Status represents notification delivery status
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification represents a notification to be dispatched
type Notification struct {
	ID     string `json:"id"`
	Type   Type   `json:"type"`
	Status Status `json:"status"`

	RecipientID types.ID `json:"recipient_id"`

	Subject string         `json:"subject"`
	Body    string         `json:"body"`
	Data    map[string]any `json:"data,omitempty"`

	// Retry info
	RetryCount   int        `json:"retry_count"`
	LastRetryAt  *time.Time `json:"last_retry_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	SentAt    *time.Time `json:"sent_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Stats represents dispatch statistics
type Stats struct {
	TotalQueued    int64          `json:"total_queued"`
	TotalDelivered int64          `json:"total_delivered"`
	TotalFailed    int64          `json:"total_failed"`
	ByType         map[Type]int64 `json:"by_type"`
	DeliveryRate   float64        `json:"delivery_rate"`
}
