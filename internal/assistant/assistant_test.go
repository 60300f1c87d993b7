package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civicdesk/platform/internal/complaint"
	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/config"
	"github.com/civicdesk/platform/internal/shared/types"
)

type fakeLister struct {
	complaints []domain.Complaint
}

func (f *fakeLister) ListVisible(ctx context.Context, actor auth.Actor, filter complaint.ListFilter) ([]domain.Complaint, int, error) {
	return f.complaints, len(f.complaints), nil
}

func testComplaint(title string, status domain.Status) domain.Complaint {
	now := time.Now().UTC()
	return domain.Complaint{
		ID:          types.NewID(),
		Title:       title,
		Description: "description",
		Category:    domain.CategoryWater,
		Priority:    domain.PriorityMedium,
		Status:      status,
		SubmittedBy: types.NewID(),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestAsk(t *testing.T) {
	var received AskRequest
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ask" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("Failed to decode sidecar request: %v", err)
		}
		json.NewEncoder(w).Encode(AskResponse{
			Answer:    "Your water complaint is in progress.",
			ModelUsed: "test-model",
		})
	}))
	defer sidecar.Close()

	lister := &fakeLister{complaints: []domain.Complaint{
		testComplaint("Broken water main", domain.StatusInProgress),
		testComplaint("Pothole on 5th street", domain.StatusOpen),
	}}
	handler := NewHandler(NewClient(config.AssistantConfig{URL: sidecar.URL}), lister)

	actor := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
	req := httptest.NewRequest("POST", "/ask", strings.NewReader(`{"question":"what is happening with my water complaint?"}`))
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp AskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Answer != "Your water complaint is in progress." {
		t.Errorf("Unexpected answer %q", resp.Answer)
	}

	if received.Question != "what is happening with my water complaint?" {
		t.Errorf("Unexpected forwarded question %q", received.Question)
	}
	if len(received.Complaints) != 2 {
		t.Fatalf("Expected 2 complaint summaries, got %d", len(received.Complaints))
	}
	if received.Complaints[0].Title != "Broken water main" || received.Complaints[0].Status != string(domain.StatusInProgress) {
		t.Errorf("Unexpected first summary %+v", received.Complaints[0])
	}
}

func TestAskValidation(t *testing.T) {
	handler := NewHandler(NewClient(config.AssistantConfig{URL: "http://localhost:0"}), &fakeLister{})

	t.Run("Requires authentication", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/ask", strings.NewReader(`{"question":"hello"}`))
		rec := httptest.NewRecorder()

		handler.Ask(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Requires a question", func(t *testing.T) {
		actor := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
		req := httptest.NewRequest("POST", "/ask", strings.NewReader(`{}`))
		req = req.WithContext(auth.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()

		handler.Ask(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}

func TestSidecarUnavailable(t *testing.T) {
	sidecar := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer sidecar.Close()

	handler := NewHandler(NewClient(config.AssistantConfig{URL: sidecar.URL}), &fakeLister{})

	actor := &auth.Actor{ID: types.NewID(), Role: auth.RoleCitizen}
	req := httptest.NewRequest("POST", "/ask", strings.NewReader(`{"question":"hello"}`))
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()

	handler.Ask(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}
