package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// UserStore is the account persistence consumed by the credential authority.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Activate sets the first password hash and marks the email verified.
	Activate(ctx context.Context, id uuid.UUID, passwordHash string, verifiedAt time.Time) error

	// ResetPassword sets a new password hash, force-disables 2FA (flag and
	// secret together) and deletes all password-reset tokens for the
	// account, in a single transaction. Partial application is a bug.
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	SetTwoFactorSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTwoFactor(ctx context.Context, id uuid.UUID) error
	// DisableTwoFactor clears the enabled flag and nulls the secret in the
	// same update.
	DisableTwoFactor(ctx context.Context, id uuid.UUID) error
}

// Mailer dispatches templated messages. Fire and forget: a failed send never
// rolls back state that was already committed.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// AuditStore records security-relevant mutations. Write-only.
type AuditStore interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

// Session is the outcome of a successful authentication.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// TwoFactorSetup is returned by Setup2FA for display to the user.
type TwoFactorSetup struct {
	Secret        string `json:"secret"`
	URI           string `json:"uri"`
	QRCodeDataURI string `json:"qr_code"`
}

// Service is the credential authority: it composes the lockout tracker,
// password verification, the TOTP engine and the token stores into one
// session-issuing state machine with four entry paths (password, magic link,
// invitation, password reset).
type Service struct {
	logger      *slog.Logger
	users       UserStore
	invitations *TokenStore
	resets      *TokenStore
	magicLinks  *TokenStore
	lockout     *LockoutTracker
	totp        *TOTPEngine
	sessions    *SessionService
	mailer      Mailer // nil when SMTP is not configured
	audit       AuditStore
	baseURL     string
}

// ServiceConfig wires the credential authority's collaborators.
type ServiceConfig struct {
	Logger      *slog.Logger
	Users       UserStore
	Invitations *TokenStore
	Resets      *TokenStore
	MagicLinks  *TokenStore
	Lockout     *LockoutTracker
	TOTP        *TOTPEngine
	Sessions    *SessionService
	Mailer      Mailer
	Audit       AuditStore
	BaseURL     string
}

// NewService creates the credential authority.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		logger:      cfg.Logger,
		users:       cfg.Users,
		invitations: cfg.Invitations,
		resets:      cfg.Resets,
		magicLinks:  cfg.MagicLinks,
		lockout:     cfg.Lockout,
		totp:        cfg.TOTP,
		sessions:    cfg.Sessions,
		mailer:      cfg.Mailer,
		audit:       cfg.Audit,
		baseURL:     cfg.BaseURL,
	}
}

// LoginWithPassword authenticates email+password, with a TOTP code when the
// account has 2FA enabled. Failures against unknown emails record lockout
// failures the same as wrong passwords, so responses never reveal whether
// the account exists.
func (s *Service) LoginWithPassword(ctx context.Context, email, password, totpCode string) (*Session, error) {
	email = NormalizeEmail(email)

	status := s.lockout.CheckStatus(ctx, email)
	if status.IsLocked {
		return nil, lockedOut(status)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.lockout.RecordFailure(ctx, email)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// An account that never completed invitation setup has no password.
	if !user.Activated() {
		s.lockout.RecordFailure(ctx, email)
		return nil, domain.ErrInvalidCredentials
	}

	if !VerifyPassword(password, *user.PasswordHash) {
		return nil, s.recordFailure(ctx, email)
	}

	if user.TwoFactorEnabled {
		// Asking for the code is not a failed attempt.
		if totpCode == "" {
			return nil, domain.ErrTwoFactorRequired
		}
		if user.TwoFactorSecret == nil || !s.totp.Verify(*user.TwoFactorSecret, totpCode) {
			return nil, s.recordFailure(ctx, email)
		}
	}

	return s.finishLogin(ctx, user)
}

// RequestMagicLink issues a magic-link token for email and dispatches the
// sign-in message. Unknown emails return success without side effects.
func (s *Service) RequestMagicLink(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	status := s.lockout.CheckStatus(ctx, email)
	if status.IsLocked {
		return lockedOut(status)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.magicLinks.Issue(ctx, email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/v1/auth/magic/verify?token=%s&email=%s", s.baseURL, token, url.QueryEscape(email))
	s.send(user.Email, "Your sign-in link", magicLinkEmail(link))
	return nil
}

// VerifyMagicLink consumes a magic-link token and issues a session. A link
// clicked twice fails the second time.
func (s *Service) VerifyMagicLink(ctx context.Context, email, token string) (*Session, error) {
	email = NormalizeEmail(email)

	status := s.lockout.CheckStatus(ctx, email)
	if status.IsLocked {
		return nil, lockedOut(status)
	}

	switch err := s.magicLinks.Consume(ctx, email, token); {
	case errors.Is(err, domain.ErrTokenNotFound):
		// A bad token is a credential guess against this email.
		return nil, s.recordFailure(ctx, email)
	case errors.Is(err, domain.ErrTokenExpired):
		// Token hygiene, not a guess; no failure recorded.
		return nil, domain.ErrInvalidCredentials
	case err != nil:
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return s.finishLogin(ctx, user)
}

// RequestPasswordReset issues a reset token and dispatches the reset
// message. Unknown emails return success without side effects.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := s.resets.Issue(ctx, email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/reset?token=%s", s.baseURL, token)
	s.send(user.Email, "Reset your password", passwordResetEmail(link))
	return nil
}

// CompletePasswordReset sets a new password from a reset token. In the same
// transaction the account's 2FA is force-disabled and all of its reset
// tokens removed: a password compromise must not leave a captured 2FA
// secret trusted. Intentional policy, not an accident.
func (s *Service) CompletePasswordReset(ctx context.Context, token, newPassword string) error {
	identifier, err := s.resets.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrTokenExpired) {
			return domain.ErrInvalidCredentials
		}
		return err
	}

	user, err := s.users.GetByEmail(ctx, identifier)
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.ResetPassword(ctx, user.ID, hash)
}

// ValidateInvitation checks an invitation token without consuming it, so the
// client can confirm validity before showing the password form.
func (s *Service) ValidateInvitation(ctx context.Context, email, token string) error {
	email = NormalizeEmail(email)

	if err := s.invitations.Peek(ctx, email, token); err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Activated() {
		return domain.ErrAlreadyConfigured
	}
	return nil
}

// CompleteInvitation consumes an invitation token, sets the account's first
// password and marks the email verified. This is the only transition from
// "cannot authenticate" to "can authenticate via password".
func (s *Service) CompleteInvitation(ctx context.Context, email, token, password string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Activated() {
		return domain.ErrAlreadyConfigured
	}

	if err := s.invitations.Consume(ctx, email, token); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.Activate(ctx, user.ID, hash, time.Now())
}

// SendInvitation issues a 7-day invitation token for a freshly created,
// password-less account and dispatches the setup message. A failed send is
// logged only; the account and token stay committed and the user can be
// re-invited.
func (s *Service) SendInvitation(ctx context.Context, user *domain.User) error {
	token, err := s.invitations.Issue(ctx, user.Email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/auth/setup-password?token=%s&email=%s", s.baseURL, token, url.QueryEscape(user.Email))
	s.send(user.Email, "You've been invited", invitationEmail(link))
	return nil
}

// Setup2FA provisions a fresh TOTP secret for the user and stores it with
// the enabled flag off. The flag only flips once the user proves possession
// via Enable2FA.
func (s *Service) Setup2FA(ctx context.Context, userID uuid.UUID) (*TwoFactorSetup, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, domain.ErrAlreadyConfigured
	}

	secret, uri, err := s.totp.Provision(user.Email)
	if err != nil {
		return nil, err
	}
	qr, err := s.totp.QRCodeDataURI(uri)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetTwoFactorSecret(ctx, user.ID, secret); err != nil {
		return nil, err
	}

	return &TwoFactorSetup{Secret: secret, URI: uri, QRCodeDataURI: qr}, nil
}

// Enable2FA verifies the first code against the provisioned secret and
// enables 2FA.
func (s *Service) Enable2FA(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return domain.ErrAlreadyConfigured
	}
	if user.TwoFactorSecret == nil {
		return domain.ErrTwoFactorNotSetUp
	}

	if !s.totp.Verify(*user.TwoFactorSecret, code) {
		return domain.ErrInvalidCredentials
	}

	if err := s.users.EnableTwoFactor(ctx, user.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, user.ID, domain.AuditEnable2FA, "User", user.ID.String(), nil)
	return nil
}

// Disable2FA verifies a current code, then clears the enabled flag and nulls
// the secret in one update.
func (s *Service) Disable2FA(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return domain.ErrTwoFactorNotSetUp
	}

	if !s.totp.Verify(*user.TwoFactorSecret, code) {
		return domain.ErrInvalidCredentials
	}

	if err := s.users.DisableTwoFactor(ctx, user.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, user.ID, domain.AuditDisable2FA, "User", user.ID.String(), nil)
	return nil
}

// TwoFactorStatus reports whether 2FA is enabled for the user.
func (s *Service) TwoFactorStatus(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.TwoFactorEnabled, nil
}

// finishLogin is the single success exit of the state machine: clear lockout
// state, stamp last login and issue the session credential.
func (s *Service) finishLogin(ctx context.Context, user *domain.User) (*Session, error) {
	s.lockout.Clear(ctx, user.Email)

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.Error("failed to update last login", "user_id", user.ID, "error", err)
	}

	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// recordFailure increments the lockout counter and translates the outcome
// into the rejection for this attempt.
func (s *Service) recordFailure(ctx context.Context, email string) error {
	status := s.lockout.RecordFailure(ctx, email)
	if status.IsLocked {
		return lockedOut(status)
	}
	if msg := status.Message(); msg != "" {
		return fmt.Errorf("%w. %s", domain.ErrInvalidCredentials, msg)
	}
	return domain.ErrInvalidCredentials
}

func (s *Service) send(to, subject, htmlBody string) {
	if s.mailer == nil {
		s.logger.Info("mail dispatch disabled, dropping message", "to", to, "subject", subject)
		return
	}
	if err := s.mailer.Send(to, subject, htmlBody); err != nil {
		s.logger.Error("failed to send email", "to", to, "subject", subject, "error", err)
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID uuid.UUID, action, entity, entityID string, changes json.RawMessage) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:       uuid.New(),
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Changes:  changes,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry", "action", action, "error", err)
	}
}

func lockedOut(status LockoutStatus) error {
	endsAt := time.Now().Add(DefaultLockoutDuration)
	if status.LockoutEndsAt != nil {
		endsAt = *status.LockoutEndsAt
	}
	return &domain.LockedOutError{EndsAt: endsAt}
}
