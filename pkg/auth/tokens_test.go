package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// fakeTokenRepo is an in-memory TokenRepository keyed like the real table:
// one row per token hash.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.AuthToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*domain.AuthToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *domain.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.tokens[token.TokenHash] = &cp
	return nil
}

func (r *fakeTokenRepo) Find(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (*domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.Purpose != purpose || token.Identifier != identifier {
		return nil, domain.ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) FindByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.Purpose != purpose {
		return nil, domain.ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (r *fakeTokenRepo) Claim(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.Purpose != purpose || token.Identifier != identifier {
		return false, nil
	}
	delete(r.tokens, tokenHash)
	return true, nil
}

func (r *fakeTokenRepo) DeleteByIdentifier(ctx context.Context, purpose domain.TokenPurpose, identifier string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.Purpose == purpose && token.Identifier == identifier {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

func newTestTokenStore(repo TokenRepository, ttl time.Duration, now func() time.Time) *TokenStore {
	store := NewTokenStore(domain.TokenPurposeMagicLink, ttl, repo)
	if now != nil {
		store.now = now
	}
	return store
}

func TestTokenStore_IssueAndConsume(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	store := newTestTokenStore(repo, DefaultMagicLinkTTL, nil)

	raw, err := store.Issue(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("raw token length = %d, want 64 hex chars", len(raw))
	}
	if _, ok := repo.tokens[raw]; ok {
		t.Error("raw token value must not be stored, only its hash")
	}

	if err := store.Consume(ctx, "user@example.com", raw); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	// Single use: the same pair fails the second time.
	if err := store.Consume(ctx, "user@example.com", raw); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("second Consume() error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokenStore_ConsumeWrongIdentifier(t *testing.T) {
	ctx := context.Background()
	store := newTestTokenStore(newFakeTokenRepo(), DefaultMagicLinkTTL, nil)

	raw, _ := store.Issue(ctx, "user@example.com")
	if err := store.Consume(ctx, "other@example.com", raw); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Consume() with wrong identifier error = %v, want ErrTokenNotFound", err)
	}

	// The token is still live for its rightful owner.
	if err := store.Consume(ctx, "user@example.com", raw); err != nil {
		t.Errorf("Consume() for rightful owner error = %v", err)
	}
}

func TestTokenStore_IssueInvalidatesPrevious(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	store := newTestTokenStore(repo, DefaultMagicLinkTTL, nil)

	first, _ := store.Issue(ctx, "user@example.com")
	second, _ := store.Issue(ctx, "user@example.com")

	if repo.count() != 1 {
		t.Errorf("token count = %d, want 1 live token per identifier", repo.count())
	}
	if err := store.Consume(ctx, "user@example.com", first); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("superseded token Consume() error = %v, want ErrTokenNotFound", err)
	}
	if err := store.Consume(ctx, "user@example.com", second); err != nil {
		t.Errorf("latest token Consume() error = %v", err)
	}
}

func TestTokenStore_ExpiryBoundary(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 15 * time.Minute

	tests := []struct {
		name    string
		at      time.Time
		wantErr error
	}{
		{"just before expiry", issued.Add(ttl - time.Millisecond), nil},
		{"exactly at expiry", issued.Add(ttl), domain.ErrTokenExpired},
		{"after expiry", issued.Add(ttl + time.Millisecond), domain.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeTokenRepo()
			now := issued
			store := newTestTokenStore(repo, ttl, func() time.Time { return now })

			raw, _ := store.Issue(ctx, "user@example.com")
			now = tt.at

			err := store.Consume(ctx, "user@example.com", raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Consume() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenStore_ConsumePurgesExpired(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestTokenStore(repo, time.Minute, func() time.Time { return now })

	raw, _ := store.Issue(ctx, "user@example.com")
	now = now.Add(2 * time.Minute)

	if err := store.Consume(ctx, "user@example.com", raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("Consume() error = %v, want ErrTokenExpired", err)
	}
	if repo.count() != 0 {
		t.Errorf("expired token should be purged on consume, %d rows remain", repo.count())
	}
}

func TestTokenStore_PeekDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	store := newTestTokenStore(repo, DefaultMagicLinkTTL, nil)

	raw, _ := store.Issue(ctx, "user@example.com")

	for i := 0; i < 3; i++ {
		if err := store.Peek(ctx, "user@example.com", raw); err != nil {
			t.Fatalf("Peek() #%d error = %v", i, err)
		}
	}
	if repo.count() != 1 {
		t.Errorf("Peek must not mutate; token count = %d, want 1", repo.count())
	}

	if err := store.Consume(ctx, "user@example.com", raw); err != nil {
		t.Errorf("Consume() after Peek error = %v", err)
	}
}

func TestTokenStore_PeekExpiredMutatesNothing(t *testing.T) {
	ctx := context.Background()
	repo := newFakeTokenRepo()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newTestTokenStore(repo, time.Minute, func() time.Time { return now })

	raw, _ := store.Issue(ctx, "user@example.com")
	now = now.Add(2 * time.Minute)

	if err := store.Peek(ctx, "user@example.com", raw); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("Peek() error = %v, want ErrTokenExpired", err)
	}
	if repo.count() != 1 {
		t.Errorf("Peek must not purge expired tokens; count = %d, want 1", repo.count())
	}
}

func TestTokenStore_Lookup(t *testing.T) {
	ctx := context.Background()
	store := newTestTokenStore(newFakeTokenRepo(), DefaultMagicLinkTTL, nil)

	raw, _ := store.Issue(ctx, "user@example.com")

	identifier, err := store.Lookup(ctx, raw)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if identifier != "user@example.com" {
		t.Errorf("Lookup() identifier = %q, want user@example.com", identifier)
	}

	if _, err := store.Lookup(ctx, "unknown"); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("Lookup() unknown token error = %v, want ErrTokenNotFound", err)
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("HashToken must be deterministic")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("different tokens must hash differently")
	}
	if len(HashToken("abc")) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(HashToken("abc")))
	}
}
