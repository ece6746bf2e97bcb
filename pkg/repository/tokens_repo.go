package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// TokensRepository persists single-use auth tokens. It implements
// auth.TokenRepository.
type TokensRepository struct {
	db *sql.DB
}

// NewTokensRepository creates a new tokens repository.
func NewTokensRepository(db *sql.DB) *TokensRepository {
	return &TokensRepository{db: db}
}

// Create inserts a token row.
func (r *TokensRepository) Create(ctx context.Context, token *domain.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (token_hash, identifier, purpose, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.TokenHash, token.Identifier, token.Purpose, token.ExpiresAt, token.CreatedAt,
	)
	return err
}

// Find looks up a token by exact (purpose, identifier, hash) match.
func (r *TokensRepository) Find(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (*domain.AuthToken, error) {
	query := `
		SELECT token_hash, identifier, purpose, expires_at, created_at
		FROM auth_tokens
		WHERE purpose = $1 AND identifier = $2 AND token_hash = $3
	`
	return r.scan(r.db.QueryRowContext(ctx, query, purpose, identifier, tokenHash))
}

// FindByHash looks up a token by (purpose, hash) alone.
func (r *TokensRepository) FindByHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.AuthToken, error) {
	query := `
		SELECT token_hash, identifier, purpose, expires_at, created_at
		FROM auth_tokens
		WHERE purpose = $1 AND token_hash = $2
	`
	return r.scan(r.db.QueryRowContext(ctx, query, purpose, tokenHash))
}

// Claim deletes the exact token row and reports whether this caller removed
// it. The unconditional DELETE makes consumption atomic: of two concurrent
// claimers, one sees a row deleted and the other sees zero.
func (r *TokensRepository) Claim(ctx context.Context, purpose domain.TokenPurpose, identifier, tokenHash string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE purpose = $1 AND identifier = $2 AND token_hash = $3`,
		purpose, identifier, tokenHash,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DeleteByIdentifier removes every token for (purpose, identifier).
func (r *TokensRepository) DeleteByIdentifier(ctx context.Context, purpose domain.TokenPurpose, identifier string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM auth_tokens WHERE purpose = $1 AND identifier = $2`,
		purpose, identifier,
	)
	return err
}

// DeleteExpired removes tokens past their expiry. Run periodically.
func (r *TokensRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *TokensRepository) scan(row *sql.Row) (*domain.AuthToken, error) {
	token := &domain.AuthToken{}
	err := row.Scan(&token.TokenHash, &token.Identifier, &token.Purpose, &token.ExpiresAt, &token.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}
