package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTwoFactorRequired  = errors.New("two-factor authentication required")
	ErrTwoFactorNotSetUp  = errors.New("two-factor setup not initiated")
	ErrAlreadyConfigured  = errors.New("already configured")
	ErrTokenNotFound      = errors.New("token not found")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionInvalid     = errors.New("invalid or expired session")
	ErrUnavailable        = errors.New("backing store unavailable")
)

// Resource errors
var (
	ErrVehicleNotFound = errors.New("vehicle not found")
)

// LockedOutError reports that an identifier is past the failure threshold.
// It never reveals whether the identifier corresponds to a real account.
type LockedOutError struct {
	EndsAt time.Time
}

func (e *LockedOutError) Error() string {
	minutes := int(time.Until(e.EndsAt).Minutes()) + 1
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Account temporarily locked. Try again in %d minute(s).", minutes)
}

// RetryAfter returns the remaining lockout duration.
func (e *LockedOutError) RetryAfter() time.Duration {
	return time.Until(e.EndsAt)
}
