package me

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/http/middleware"
	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
	"github.com/dealerdesk/dealerdesk/pkg/repository"
)

// Handler serves the authenticated user's own profile.
type Handler struct {
	logger *slog.Logger
	users  *repository.UsersRepository
}

// NewHandler creates a new profile handler.
func NewHandler(logger *slog.Logger, users *repository.UsersRepository) *Handler {
	return &Handler{logger: logger, users: users}
}

// ProfileResponse is the authenticated user's own view of their account.
type ProfileResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	TwoFactorEnabled bool     `json:"two_factor_enabled"`
	Permissions      []string `json:"permissions"`
	LastLoginAt      *string  `json:"last_login_at,omitempty"`
}

// Get returns the current user.
// GET /v1/me
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	resp := ProfileResponse{
		ID:               user.ID.String(),
		Email:            user.Email,
		Name:             user.Name,
		Role:             string(user.Role),
		TwoFactorEnabled: user.TwoFactorEnabled,
		Permissions:      domain.Permissions(user.Role),
	}
	if user.LastLoginAt != nil {
		s := user.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLoginAt = &s
	}

	httputil.JSON(w, http.StatusOK, resp)
}
