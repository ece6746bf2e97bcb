package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/http/middleware"
	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
	"github.com/dealerdesk/dealerdesk/pkg/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler handles staff account administration. All routes sit behind the
// users:* permissions, so only admins reach them.
type Handler struct {
	logger  *slog.Logger
	users   *repository.UsersRepository
	service *auth.Service
	audit   auth.AuditStore
}

// NewHandler creates a new user administration handler.
func NewHandler(logger *slog.Logger, users *repository.UsersRepository, service *auth.Service, audit auth.AuditStore) *Handler {
	return &Handler{logger: logger, users: users, service: service, audit: audit}
}

// UserResponse is the admin view of an account.
type UserResponse struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Activated        bool    `json:"activated"`
	TwoFactorEnabled bool    `json:"two_factor_enabled"`
	LastLoginAt      *string `json:"last_login_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:               u.ID.String(),
		Email:            u.Email,
		Name:             u.Name,
		Role:             string(u.Role),
		Activated:        u.Activated(),
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.LastLoginAt != nil {
		s := u.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLoginAt = &s
	}
	return resp
}

// List returns accounts newest first.
// GET /v1/users?limit=&cursor=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var cursor *uuid.UUID
	if v := r.URL.Query().Get("cursor"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = &id
	}

	users, err := h.users.List(r.Context(), limit, cursor)
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}

	resp := map[string]any{"users": items}
	if len(items) == limit {
		resp["next_cursor"] = items[len(items)-1].ID
	}
	httputil.JSON(w, http.StatusOK, resp)
}

// Get returns a single account.
// GET /v1/users/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, toUserResponse(user))
}

// CreateRequest represents an account creation request.
type CreateRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Create adds an account without credentials and emails an invitation. The
// account cannot authenticate until the invitation completes.
// POST /v1/users
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Name == "" {
		httputil.Error(w, http.StatusBadRequest, "email and name are required")
		return
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		httputil.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	exists, err := h.users.ExistsByEmail(r.Context(), email)
	if err != nil {
		h.logger.Error("failed to check user existence", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if exists {
		httputil.DomainError(w, domain.ErrUserAlreadyExists)
		return
	}

	now := time.Now()
	user := &domain.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      req.Name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.Error("failed to create user", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.service.SendInvitation(r.Context(), user); err != nil {
		h.logger.Error("failed to send invitation", "error", err, "user_id", user.ID)
	}

	h.recordAudit(r, domain.AuditCreate, user.ID, map[string]string{
		"email": user.Email, "name": user.Name, "role": string(user.Role),
	})
	httputil.JSON(w, http.StatusCreated, toUserResponse(user))
}

// Invite re-sends the invitation email for an account that has not completed
// setup. The previous invitation token is superseded.
// POST /v1/users/{id}/invite
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}
	if user.Activated() {
		httputil.Error(w, http.StatusBadRequest, "this account is already set up")
		return
	}

	if err := h.service.SendInvitation(r.Context(), user); err != nil {
		h.logger.Error("failed to send invitation", "error", err, "user_id", user.ID)
		httputil.Error(w, http.StatusInternalServerError, "failed to send invitation")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": "invitation sent"})
}

// UpdateRequest represents an account update.
type UpdateRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Update changes an account's name and role.
// PUT /v1/users/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httputil.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		httputil.Error(w, http.StatusBadRequest, "invalid role")
		return
	}

	// An admin demoting themselves away from ADMIN is allowed; locking the
	// last admin out is an operational problem, not one this endpoint solves.
	if err := h.users.UpdateProfile(r.Context(), id, req.Name, role); err != nil {
		httputil.DomainError(w, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.recordAudit(r, domain.AuditUpdate, id, req)
	httputil.JSON(w, http.StatusOK, toUserResponse(user))
}

// Delete removes an account. Outstanding tokens go with it via the schema's
// cascade; the account's sessions expire on their own.
// DELETE /v1/users/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if actorID, ok := middleware.GetUserID(r.Context()); ok && actorID == id {
		httputil.Error(w, http.StatusBadRequest, "you cannot delete your own account")
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.DomainError(w, err)
			return
		}
		h.logger.Error("failed to delete user", "error", err, "user_id", id)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.recordAudit(r, domain.AuditDelete, id, nil)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID uuid.UUID, changes any) {
	if h.audit == nil {
		return
	}
	actorID, _ := middleware.GetUserID(r.Context())

	var raw json.RawMessage
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			raw = b
		}
	}

	entry := &domain.AuditEntry{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    action,
		Entity:    "user",
		EntityID:  entityID.String(),
		Changes:   raw,
		CreatedAt: time.Now(),
	}
	if err := h.audit.Create(r.Context(), entry); err != nil {
		h.logger.Error("failed to record audit entry", "error", err, "action", action, "entity_id", entityID)
	}
}
