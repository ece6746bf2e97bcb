package authn

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// Handler handles the credential-accepting endpoints: password login, magic
// link, password reset and invitation completion.
type Handler struct {
	logger       *slog.Logger
	service      *auth.Service
	cookieConfig httputil.CookieConfig
	appBaseURL   string
}

// NewHandler creates a new authentication handler.
func NewHandler(logger *slog.Logger, service *auth.Service, cookieConfig httputil.CookieConfig, appBaseURL string) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		cookieConfig: cookieConfig,
		appBaseURL:   appBaseURL,
	}
}

// LoginRequest represents a password login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// SessionResponse is returned on successful authentication.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID.String(),
		Email:            u.Email,
		Name:             u.Name,
		Role:             string(u.Role),
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}

func (h *Handler) writeSession(w http.ResponseWriter, session *auth.Session, status int) {
	httputil.SetSessionCookie(w, session.Token, session.ExpiresAt, h.cookieConfig)
	httputil.JSON(w, status, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toUserResponse(session.User),
	})
}

// Login handles password login.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	session, err := h.service.LoginWithPassword(r.Context(), req.Email, req.Password, req.TOTPCode)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.writeSession(w, session, http.StatusOK)
}

// Logout clears the session cookie. The signed credential itself stays valid
// until expiry; clients are expected to discard it.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearSessionCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// MagicLinkRequest represents a magic link request.
type MagicLinkRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink emails a single-use login link. The response is identical
// whether or not the account exists.
// POST /v1/auth/magic
func (h *Handler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req MagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.RequestMagicLink(r.Context(), req.Email); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "if an account exists for that address, a login link has been sent",
	})
}

// VerifyMagicLinkRequest represents a magic link verification request.
type VerifyMagicLinkRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// VerifyMagicLink consumes a magic link token and issues a session.
// POST /v1/auth/magic/verify
func (h *Handler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req VerifyMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.verifyMagicLink(w, r, req.Email, req.Token)
}

// VerifyMagicLinkGet handles the link clicked from the email. On success it
// sets the session cookie and redirects into the app.
// GET /v1/auth/magic/verify?token=...&email=...
func (h *Handler) VerifyMagicLinkGet(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")

	session, err := h.service.VerifyMagicLink(r.Context(), email, token)
	if err != nil {
		// Browser flow: redirect back to the login page with an error hint
		// instead of rendering raw JSON.
		http.Redirect(w, r, h.appBaseURL+"/auth/login?error="+url.QueryEscape(magicLinkErrorCode(err)), http.StatusFound)
		return
	}

	httputil.SetSessionCookie(w, session.Token, session.ExpiresAt, h.cookieConfig)
	http.Redirect(w, r, h.appBaseURL+"/", http.StatusFound)
}

func magicLinkErrorCode(err error) string {
	var locked *domain.LockedOutError
	if errors.As(err, &locked) {
		return "locked"
	}
	return "invalid_link"
}

func (h *Handler) verifyMagicLink(w http.ResponseWriter, r *http.Request, email, token string) {
	if email == "" || token == "" {
		httputil.Error(w, http.StatusBadRequest, "email and token are required")
		return
	}

	session, err := h.service.VerifyMagicLink(r.Context(), email, token)
	if err != nil {
		httputil.DomainError(w, err)
		return
	}

	h.writeSession(w, session, http.StatusOK)
}

// ResetRequest represents a password reset request.
type ResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset emails a reset link. The response is identical whether
// or not the account exists.
// POST /v1/auth/reset/request
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		httputil.Error(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "if an account exists for that address, a reset link has been sent",
	})
}

// CompleteResetRequest represents a password reset completion.
type CompleteResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// CompletePasswordReset sets a new password from a reset token.
// POST /v1/auth/reset/complete
func (h *Handler) CompletePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req CompleteResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Token == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "token and password are required")
		return
	}
	if len(req.Password) < 8 {
		httputil.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		httputil.DomainError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "password updated. please sign in with your new password",
	})
}

// ValidateInvitationRequest represents an invitation pre-check.
type ValidateInvitationRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// ValidateInvitation checks an invitation token without consuming it, so the
// setup form can reject a dead link before the user types a password.
// POST /v1/auth/invitation/validate
func (h *Handler) ValidateInvitation(w http.ResponseWriter, r *http.Request) {
	var req ValidateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "email and token are required")
		return
	}

	if err := h.service.ValidateInvitation(r.Context(), req.Email, req.Token); err != nil {
		h.invitationError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// CompleteInvitationRequest represents an invitation completion.
type CompleteInvitationRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

// CompleteInvitation activates an invited account with its first password.
// POST /v1/auth/invitation/complete
func (h *Handler) CompleteInvitation(w http.ResponseWriter, r *http.Request) {
	var req CompleteInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Token == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "email, token and password are required")
		return
	}
	if len(req.Password) < 8 {
		httputil.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if err := h.service.CompleteInvitation(r.Context(), req.Email, req.Token, req.Password); err != nil {
		h.invitationError(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"message": "account activated. please sign in",
	})
}

func (h *Handler) invitationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyConfigured):
		httputil.Error(w, http.StatusBadRequest, "this account is already set up. please sign in")
	case errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenNotFound):
		httputil.Error(w, http.StatusBadRequest, "this invitation link is invalid or has expired. contact an administrator for a new one")
	default:
		httputil.DomainError(w, err)
	}
}
