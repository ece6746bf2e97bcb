package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps a domain error to its HTTP response. Handlers that need
// flow-specific wording map their errors before falling back to this.
func DomainError(w http.ResponseWriter, err error) {
	var locked *domain.LockedOutError
	switch {
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter().Seconds())+1))
		Error(w, http.StatusTooManyRequests, locked.Error())
	case errors.Is(err, domain.ErrTwoFactorRequired):
		JSON(w, http.StatusUnauthorized, map[string]string{
			"error": "two-factor authentication required",
			"code":  "2fa_required",
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrAlreadyConfigured), errors.Is(err, domain.ErrTwoFactorNotSetUp):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTokenNotFound), errors.Is(err, domain.ErrTokenExpired):
		Error(w, http.StatusBadRequest, "invalid or expired token")
	case errors.Is(err, domain.ErrUserNotFound):
		Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrVehicleNotFound):
		Error(w, http.StatusNotFound, "vehicle not found")
	case errors.Is(err, domain.ErrUserAlreadyExists):
		Error(w, http.StatusConflict, "user with this email already exists")
	case errors.Is(err, domain.ErrUnavailable):
		Error(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
