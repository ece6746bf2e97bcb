package mfa

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/http/middleware"
	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
)

// Handler handles two-factor enrollment for the authenticated user.
type Handler struct {
	logger  *slog.Logger
	service *auth.Service
}

// NewHandler creates a new MFA handler.
func NewHandler(logger *slog.Logger, service *auth.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// Status returns whether two-factor is enabled.
// GET /v1/me/2fa
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	enabled, err := h.service.TwoFactorStatus(r.Context(), userID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

// Setup provisions a new TOTP secret and returns it with a QR code. The
// secret stays dormant until Enable verifies a code against it.
// POST /v1/me/2fa/setup
func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	setup, err := h.service.Setup2FA(r.Context(), userID)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, setup)
}

// CodeRequest carries a TOTP code for enable/disable.
type CodeRequest struct {
	Code string `json:"code"`
}

// Enable turns on two-factor after verifying a code against the provisioned
// secret.
// POST /v1/me/2fa/enable
func (h *Handler) Enable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.service.Enable2FA, "two-factor authentication enabled")
}

// Disable turns off two-factor after verifying a current code.
// POST /v1/me/2fa/disable
func (h *Handler) Disable(w http.ResponseWriter, r *http.Request) {
	h.withCode(w, r, h.service.Disable2FA, "two-factor authentication disabled")
}

func (h *Handler) withCode(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID uuid.UUID, code string) error, message string) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "missing authorization")
		return
	}

	var req CodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		httputil.Error(w, http.StatusBadRequest, "code is required")
		return
	}

	if err := fn(r.Context(), userID, req.Code); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"message": message})
}
