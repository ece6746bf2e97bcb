package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

func newTokensMock(t *testing.T) (*TokensRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTokensRepository(db), mock
}

func TestTokensRepository_Claim(t *testing.T) {
	repo, mock := newTokensMock(t)

	mock.ExpectExec(`DELETE FROM auth_tokens WHERE purpose = \$1 AND identifier = \$2 AND token_hash = \$3`).
		WithArgs(domain.TokenPurposeMagicLink, "user@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(context.Background(), domain.TokenPurposeMagicLink, "user@example.com", "hash")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if !claimed {
		t.Error("Claim() = false, want true when a row was deleted")
	}
}

func TestTokensRepository_Claim_AlreadyGone(t *testing.T) {
	repo, mock := newTokensMock(t)

	mock.ExpectExec(`DELETE FROM auth_tokens WHERE purpose = \$1 AND identifier = \$2 AND token_hash = \$3`).
		WithArgs(domain.TokenPurposeMagicLink, "user@example.com", "hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(context.Background(), domain.TokenPurposeMagicLink, "user@example.com", "hash")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if claimed {
		t.Error("Claim() = true, want false when the row was already deleted")
	}
}

func TestTokensRepository_Find_NotFound(t *testing.T) {
	repo, mock := newTokensMock(t)

	mock.ExpectQuery(`SELECT .+ FROM auth_tokens`).
		WithArgs(domain.TokenPurposeInvitation, "user@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"token_hash"}))

	_, err := repo.Find(context.Background(), domain.TokenPurposeInvitation, "user@example.com", "hash")
	if !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("error = %v, want ErrTokenNotFound", err)
	}
}

func TestTokensRepository_DeleteExpired(t *testing.T) {
	repo, mock := newTokensMock(t)
	now := time.Now()

	mock.ExpectExec(`DELETE FROM auth_tokens WHERE expires_at <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteExpired() = %d, want 3", n)
	}
}
