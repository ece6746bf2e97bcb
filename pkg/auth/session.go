package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

// DefaultSessionTTL is the fixed maximum session lifetime. There is no
// revocation list; expiry is the only termination mechanism.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionConfig holds session issuing configuration.
type SessionConfig struct {
	TTL    time.Duration
	Secret []byte
	Issuer string
}

// SessionClaims is the self-contained claim set carried by a session
// credential.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Name  string      `json:"name,omitempty"`
	Role  domain.Role `json:"role"`
}

// SessionService mints and validates signed session credentials.
type SessionService struct {
	config SessionConfig
	now    func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(config SessionConfig) *SessionService {
	if config.TTL == 0 {
		config.TTL = DefaultSessionTTL
	}
	return &SessionService{config: config, now: time.Now}
}

// TTL returns the configured session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.config.TTL
}

// Issue mints a signed session credential for the user.
func (s *SessionService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.config.TTL)

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and verifies a session credential, returning its claims.
func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrSessionInvalid
		}
		return s.config.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrSessionInvalid
	}
	return claims, nil
}
