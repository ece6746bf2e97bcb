package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account.
//
// PasswordHash is nil until the account completes invitation setup; such an
// account cannot authenticate with a password. TwoFactorEnabled implies a
// non-nil TwoFactorSecret; disabling 2FA nulls the secret in the same update.
type User struct {
	ID               uuid.UUID
	Email            string
	Name             string
	PasswordHash     *string
	Role             Role
	TwoFactorEnabled bool
	TwoFactorSecret  *string
	LastLoginAt      *time.Time
	EmailVerifiedAt  *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Activated reports whether the account has completed invitation setup.
func (u *User) Activated() bool {
	return u.PasswordHash != nil
}
