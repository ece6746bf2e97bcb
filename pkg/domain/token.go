package domain

import "time"

// TokenPurpose identifies what a single-use token authorizes.
type TokenPurpose string

const (
	TokenPurposeInvitation    TokenPurpose = "invitation"
	TokenPurposePasswordReset TokenPurpose = "password_reset"
	TokenPurposeMagicLink     TokenPurpose = "magic_link"
)

// AuthToken is a single-use, expiring credential scoped to an identifier
// (the account's email). Only the SHA-256 hash of the token value is stored.
// At most one live token exists per (identifier, purpose) pair; issuing a
// new one removes its predecessors.
type AuthToken struct {
	TokenHash  string
	Identifier string
	Purpose    TokenPurpose
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is past its expiry at the given time.
// Expiry is exclusive: the token is valid strictly before ExpiresAt.
func (t *AuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
