package identity

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/config"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/events"
)

// Handler provides HTTP handlers for registration and login
type Handler struct {
	repo *Repository
	cfg  config.AuthConfig
	bus  events.EventBus
}

// NewHandler creates a new identity handler. The bus may be nil when
// event publishing is disabled.
func NewHandler(repo *Repository, cfg config.AuthConfig, bus events.EventBus) *Handler {
	return &Handler{repo: repo, cfg: cfg, bus: bus}
}

// Routes registers the public identity routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)

	return r
}

// ProtectedRoutes registers routes that require an authenticated actor
func (h *Handler) ProtectedRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.Me)
	r.With(auth.RequireRole(auth.RoleAdmin)).Get("/staff", h.ListStaff)

	return r
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Register creates a citizen account. Staff and admin accounts are
// provisioned operationally, never through self-registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	if len(req.Password) < 8 {
		writeError(w, errors.Validation("invalid user", map[string]string{"password": "must be at least 8 characters"}))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	user, err := NewUser(req.Name, req.Email, string(hash), auth.RoleCitizen)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.repo.Create(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	token, err := auth.NewToken(h.cfg, user.ID, user.Role)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	h.publish(r, "identity.user_registered", user)

	writeJSON(w, http.StatusCreated, TokenResponse{Token: token, User: user})
}

// Login authenticates an account and issues a JWT carrying its role
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.BadRequest("invalid request body"))
		return
	}

	user, err := h.repo.FindByEmail(r.Context(), req.Email)
	if err != nil {
		// Do not reveal whether the account exists
		writeError(w, errors.Unauthenticated("invalid credentials"))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, errors.Unauthenticated("invalid credentials"))
		return
	}

	token, err := auth.NewToken(h.cfg, user.ID, user.Role)
	if err != nil {
		writeError(w, errors.Internal(err))
		return
	}

	h.publish(r, "identity.user_logged_in", user)

	writeJSON(w, http.StatusOK, TokenResponse{Token: token, User: user})
}

func (h *Handler) publish(r *http.Request, eventType string, user *User) {
	if h.bus == nil {
		return
	}

	event := events.NewEvent(eventType, "identity", map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	}).WithActor(user.ID, string(user.Role))

	if err := h.bus.Publish(r.Context(), event); err != nil {
		log.Printf("failed to publish %s for user %s: %v", eventType, user.ID, err)
	}
}

// Me returns the authenticated account
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetActor(r.Context())
	if actor == nil {
		writeError(w, errors.Unauthenticated("authentication required"))
		return
	}

	user, err := h.repo.FindByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// ListStaff returns all staff accounts; used by the assignment console
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.ListByRole(r.Context(), auth.RoleStaff)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  users,
		"total": len(users),
	})
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
