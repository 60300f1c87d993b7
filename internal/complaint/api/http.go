package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/civicdesk/platform/internal/complaint"
	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/types"
)

// Handler provides HTTP handlers for the complaint module
type Handler struct {
	service *complaint.Service
}

// NewHandler creates a new complaint handler
func NewHandler(service *complaint.Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the complaint routes. All require an authenticated actor.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListComplaints)
	r.Post("/", h.CreateComplaint)

	r.Route("/{complaintID}", func(r chi.Router) {
		r.Get("/", h.GetComplaint)
		r.Post("/assign", h.AssignComplaint)
		r.Post("/status", h.SetStatus)
	})

	return r
}

// --- Request types ---

type CreateComplaintRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    domain.Category `json:"category"`
	Priority    domain.Priority `json:"priority"`
	Location    *types.Location `json:"location,omitempty"`
	PhotoRef    string          `json:"photo_ref,omitempty"`
}

type AssignComplaintRequest struct {
	StaffID types.ID `json:"staff_id"`
}

type SetStatusRequest struct {
	Status domain.Status `json:"status"`
}

// --- Handlers ---

func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	filter := complaint.ListFilter{
		Search: r.URL.Query().Get("search"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.Status(s)
		if !status.Valid() {
			writeError(w, errors.BadRequest("invalid status filter"))
			return
		}
		filter.Status = &status
	}

	if p := r.URL.Query().Get("priority"); p != "" {
		priority := domain.Priority(p)
		filter.Priority = &priority
	}

	if c := r.URL.Query().Get("category"); c != "" {
		category := domain.Category(c)
		filter.Category = &category
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil {
			filter.Limit = limit
		}
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		if offset, err := strconv.Atoi(o); err == nil {
			filter.Offset = offset
		}
	}

	complaints, total, err := h.service.ListVisible(r.Context(), *actor, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	if complaints == nil {
		complaints = []domain.Complaint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  complaints,
		"total": total,
	})
}

func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	var req CreateComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	c, err := h.service.Create(r.Context(), *actor, complaint.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.Location,
		PhotoRef:    req.PhotoRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid complaint ID"))
		return
	}

	c, err := h.service.Get(r.Context(), *actor, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) AssignComplaint(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid complaint ID"))
		return
	}

	var req AssignComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if req.StaffID.IsZero() {
		writeError(w, errors.BadRequest("staff_id is required"))
		return
	}

	c, err := h.service.Assign(r.Context(), *actor, id, req.StaffID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	id, err := types.ParseID(chi.URLParam(r, "complaintID"))
	if err != nil {
		writeError(w, errors.BadRequest("invalid complaint ID"))
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}
	if !req.Status.Valid() {
		writeError(w, errors.BadRequest("invalid status"))
		return
	}

	c, err := h.service.SetStatus(r.Context(), *actor, id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
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
