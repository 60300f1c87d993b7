package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicdesk/platform/internal/complaint"
	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/errors"
)

// contextLimit caps how many complaints ride along with a question.
const contextLimit = 20

// ComplaintLister supplies the complaints visible to an actor
type ComplaintLister interface {
	ListVisible(ctx context.Context, actor auth.Actor, filter complaint.ListFilter) ([]domain.Complaint, int, error)
}

// Handler provides HTTP handlers for the assistant module
type Handler struct {
	client     *Client
	complaints ComplaintLister
}

// NewHandler creates a new assistant handler
func NewHandler(client *Client, complaints ComplaintLister) *Handler {
	return &Handler{client: client, complaints: complaints}
}

// Routes registers the assistant routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/ask", h.Ask)
	r.Get("/health", h.HealthCheck)

	return r
}

type askBody struct {
	Question string `json:"question"`
}

// Ask answers a question about the caller's complaints. The context sent to
// the sidecar is scoped by the same visibility rules as the list API, so the
// assistant can never see complaints the caller cannot.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	var body askBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if body.Question == "" {
		writeError(w, errors.BadRequest("question is required"))
		return
	}

	visible, _, err := h.complaints.ListVisible(r.Context(), *actor, complaint.ListFilter{Limit: contextLimit})
	if err != nil {
		writeError(w, err)
		return
	}

	req := AskRequest{
		Question:   body.Question,
		Complaints: summarize(visible),
	}

	result, err := h.client.Ask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HealthCheck checks the sidecar's health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func summarize(complaints []domain.Complaint) []ComplaintSummary {
	summaries := make([]ComplaintSummary, 0, len(complaints))
	for _, c := range complaints {
		summaries = append(summaries, ComplaintSummary{
			ID:        string(c.ID),
			Title:     c.Title,
			Category:  string(c.Category),
			Priority:  string(c.Priority),
			Status:    string(c.Status),
			CreatedAt: c.CreatedAt.Format(time.RFC3339),
			UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
		})
	}
	return summaries
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
