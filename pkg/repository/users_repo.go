package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

const userColumns = `id, email, name, password_hash, role, two_factor_enabled, two_factor_secret,
	       last_login_at, email_verified_at, created_at, updated_at`

// UsersRepository handles account persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role,
		&user.TwoFactorEnabled, &user.TwoFactorSecret,
		&user.LastLoginAt, &user.EmailVerifiedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create inserts a new account. PasswordHash may be nil for invitation-only
// accounts.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, role, two_factor_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Role,
		user.TwoFactorEnabled, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetByEmail retrieves an account by email, case-insensitively.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves an account by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// ExistsByEmail reports whether an account with the email exists.
func (r *UsersRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	return exists, err
}

// List returns accounts ordered newest first. A non-nil cursor continues
// after that account; callers request one extra row to detect more pages.
func (r *UsersRepository) List(ctx context.Context, limit int, cursor *uuid.UUID) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id DESC LIMIT $1`
	args := []any{limit}
	if cursor != nil {
		query = `SELECT ` + userColumns + ` FROM users
			WHERE (created_at, id) < (SELECT created_at, id FROM users WHERE id = $2)
			ORDER BY created_at DESC, id DESC LIMIT $1`
		args = append(args, *cursor)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateProfile updates name and role.
func (r *UsersRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name string, role domain.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, role = $3, updated_at = NOW() WHERE id = $1`,
		id, name, role,
	)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

// Delete permanently removes an account. Its tokens cascade via the
// auth_tokens foreign key.
func (r *UsersRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

// UpdateLastLogin stamps the last successful authentication.
func (r *UsersRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`, id, at,
	)
	return err
}

// Activate sets the first password hash and marks the email verified.
func (r *UsersRepository) Activate(ctx context.Context, id uuid.UUID, passwordHash string, verifiedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, email_verified_at = $3, updated_at = NOW() WHERE id = $1`,
		id, passwordHash, verifiedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

// ResetPassword sets a new password hash, force-disables 2FA and deletes the
// account's password-reset tokens in one transaction. There is no observable
// state where one of the three applied and the others did not.
func (r *UsersRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		var email string
		err := tx.QueryRowContext(ctx, `
			UPDATE users
			SET password_hash = $2,
			    two_factor_enabled = false,
			    two_factor_secret = NULL,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING email
		`, id, passwordHash).Scan(&email)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM auth_tokens WHERE identifier = $1 AND purpose = $2`,
			email, domain.TokenPurposePasswordReset,
		)
		return err
	})
}

// SetTwoFactorSecret stores a provisioned secret without enabling 2FA.
func (r *UsersRepository) SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET two_factor_secret = $2, updated_at = NOW() WHERE id = $1`, id, secret,
	)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

// EnableTwoFactor flips the enabled flag for an account with a stored secret.
func (r *UsersRepository) EnableTwoFactor(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = true, updated_at = NOW()
		WHERE id = $1 AND two_factor_secret IS NOT NULL
	`, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

// DisableTwoFactor clears the flag and nulls the secret in the same update.
func (r *UsersRepository) DisableTwoFactor(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = false, two_factor_secret = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	return requireRow(result, domain.ErrUserNotFound)
}

func requireRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
