package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModels "aurum/internal/auth/models"
	authService "aurum/internal/auth/service"
	"aurum/internal/catalog"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/requestcontext"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*authService.LoginResult, error)
	Logout(ctx context.Context) error
	CreateUser(ctx context.Context, in authService.CreateUserInput) (*authModels.User, error)
	RemoveUser(ctx context.Context, id domain.UserID) (*authModels.User, error)
	ListUsers(ctx context.Context) ([]*authModels.User, error)
	SetOperationsOpen(ctx context.Context, open bool) (catalog.Settings, error)
}

// AuthHandler serves sessions, staff accounts and the operations gate.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
	r.Get("/users", h.handleListUsers)
	r.Post("/users", h.handleCreateUser)
	r.Delete("/users/{id}", h.handleRemoveUser)
	r.Put("/settings/operations", h.handleSetOperations)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[LoginRequest](w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeServiceError(w, r, h.logger, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := requestcontext.ActorFrom(r.Context())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":     actor.UserID,
		"username":    actor.Name,
		"role":        actor.Role,
		"customer_id": actor.CustomerID,
		"session_id":  requestcontext.SessionID(r.Context()),
	})
}

func (h *AuthHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list users failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *AuthHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[CreateUserRequest](w, r, h.logger)
	if !ok {
		return
	}
	user, err := h.auth.CreateUser(r.Context(), authService.CreateUserInput{
		Username:   req.Username,
		Password:   req.Password,
		Role:       domain.Role(req.Role),
		CustomerID: req.customerID,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create user failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", domain.ParseUserID)
	if !ok {
		return
	}
	user, err := h.auth.RemoveUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "remove user failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) handleSetOperations(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[OperationsRequest](w, r, h.logger)
	if !ok {
		return
	}
	settings, err := h.auth.SetOperationsOpen(r.Context(), *req.Open)
	if err != nil {
		writeServiceError(w, r, h.logger, "set operations failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}
