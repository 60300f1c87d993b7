package assistant

import "time"

// ComplaintSummary is the slice of a complaint the sidecar is allowed to
// see. It carries no submitter identity; the sidecar grounds its answer on
// the caller's own complaints only.
type ComplaintSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AskRequest represents a question forwarded to the assistant sidecar
type AskRequest struct {
	Question   string             `json:"question"`
	Complaints []ComplaintSummary `json:"complaints,omitempty"`
}

// AskResponse represents the sidecar's answer
type AskResponse struct {
	RequestID        string    `json:"request_id"`
	Timestamp        time.Time `json:"timestamp"`
	Answer           string    `json:"answer"`
	Sources          []string  `json:"sources,omitempty"`
	ModelUsed        string    `json:"model_used"`
	ProcessingTimeMs int       `json:"processing_time_ms"`
}
