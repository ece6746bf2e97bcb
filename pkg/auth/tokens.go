package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// Default token lifetimes per purpose.
const (
	DefaultInvitationTTL    = 7 * 24 * time.Hour
	DefaultPasswordResetTTL = 30 * time.Minute
	DefaultMagicLinkTTL     = 15 * time.Minute
)

// TokenRepository is the persistence backing for single-use tokens.
// Claim must be atomic: when two callers race on the same row, exactly one
// sees claimed=true.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.AuthToken) error
	Find(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (*domain.AuthToken, error)
	FindByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.AuthToken, error)
	Claim(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (bool, error)
	DeleteByIdentifier(ctx context.Context, purpose domain.TokenPurpose, identifier string) error
}

// TokenStore issues and consumes single-use expiring tokens for one purpose.
// The invitation, password-reset and magic-link flows each get an instance
// parameterized only by purpose and lifetime.
type TokenStore struct {
	purpose domain.TokenPurpose
	ttl     time.Duration
	repo    TokenRepository
	now     func() time.Time
}

// NewTokenStore creates a token store for the given purpose and lifetime.
func NewTokenStore(purpose domain.TokenPurpose, ttl time.Duration, repo TokenRepository) *TokenStore {
	return &TokenStore{purpose: purpose, ttl: ttl, repo: repo, now: time.Now}
}

// Issue generates a new token for identifier, invalidating any live tokens
// for the same (identifier, purpose) pair, and returns the raw token value.
// The raw value is never stored; only its hash is.
func (s *TokenStore) Issue(ctx context.Context, identifier string) (string, error) {
	raw := GenerateToken()

	if err := s.repo.DeleteByIdentifier(ctx, s.purpose, identifier); err != nil {
		return "", fmt.Errorf("failed to invalidate previous tokens: %w", err)
	}

	now := s.now()
	token := &domain.AuthToken{
		TokenHash:  HashToken(raw),
		Identifier: identifier,
		Purpose:    s.purpose,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return raw, nil
}

// Consume validates and deletes the token in one logical operation. A second
// call with the same pair, including a concurrent one, fails with
// ErrTokenNotFound. Expired tokens are purged as a side effect and reported
// as ErrTokenExpired.
func (s *TokenStore) Consume(ctx context.Context, identifier, raw string) error {
	hash := HashToken(raw)

	token, err := s.repo.Find(ctx, s.purpose, identifier, hash)
	if err != nil {
		return err
	}

	if token.Expired(s.now()) {
		if err := s.repo.DeleteByIdentifier(ctx, s.purpose, identifier); err != nil {
			return fmt.Errorf("failed to purge expired tokens: %w", err)
		}
		return domain.ErrTokenExpired
	}

	claimed, err := s.repo.Claim(ctx, s.purpose, identifier, hash)
	if err != nil {
		return err
	}
	if !claimed {
		return domain.ErrTokenNotFound
	}
	return nil
}

// Peek validates a token without consuming it. It mutates nothing, even for
// expired tokens; the final Consume still enforces single use.
func (s *TokenStore) Peek(ctx context.Context, identifier, raw string) error {
	token, err := s.repo.Find(ctx, s.purpose, identifier, HashToken(raw))
	if err != nil {
		return err
	}
	if token.Expired(s.now()) {
		return domain.ErrTokenExpired
	}
	return nil
}

// Lookup resolves a token to its identifier without consuming it. Used by
// the password-reset completion, which receives the token alone.
func (s *TokenStore) Lookup(ctx context.Context, raw string) (string, error) {
	token, err := s.repo.FindByHash(ctx, s.purpose, HashToken(raw))
	if err != nil {
		return "", err
	}
	if token.Expired(s.now()) {
		return "", domain.ErrTokenExpired
	}
	return token.Identifier, nil
}

// GenerateToken returns a 256-bit random token, hex encoded.
func GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(b)
}

// HashToken returns the hex SHA-256 of a raw token. Tokens are stored and
// looked up by hash so a database leak does not expose live credentials.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
