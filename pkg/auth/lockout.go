package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/kv"
)

// Lockout defaults.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
	DefaultAttemptWindow     = time.Hour
)

// LockoutStatus describes the lockout state of an identifier.
type LockoutStatus struct {
	IsLocked          bool
	RemainingAttempts int
	FailedAttempts    int
	LockoutEndsAt     *time.Time
}

// Message renders the user-facing hint for this status. A clean status
// renders nothing.
func (s LockoutStatus) Message() string {
	if !s.IsLocked {
		if s.FailedAttempts > 0 {
			return fmt.Sprintf("%d attempt(s) remaining before account lockout.", s.RemainingAttempts)
		}
		return ""
	}
	if s.LockoutEndsAt != nil {
		minutes := int(time.Until(*s.LockoutEndsAt).Minutes()) + 1
		if minutes < 1 {
			minutes = 1
		}
		return fmt.Sprintf("Account temporarily locked. Try again in %d minute(s).", minutes)
	}
	return "Account temporarily locked. Please try again later."
}

// LockoutTracker counts failed authentication attempts per identifier and
// escalates to a timed lockout. Identifiers are emails, including emails with
// no matching account, so failures against unknown addresses accumulate the
// same way and cannot be used for enumeration.
//
// The tracker has two operating modes fixed at startup: enforced, backed by
// the shared counter store, and disabled, where every check reports a clean
// status. Store errors in enforced mode degrade to "never locked" (fail-open,
// availability over strictness); token verification never degrades this way.
type LockoutTracker struct {
	store       kv.Store
	logger      *slog.Logger
	enforced    bool
	maxAttempts int
	lockout     time.Duration
	window      time.Duration
	now         func() time.Time
}

// NewLockoutTracker creates an enforced tracker over the given store.
func NewLockoutTracker(store kv.Store, logger *slog.Logger) *LockoutTracker {
	return &LockoutTracker{
		store:       store,
		logger:      logger,
		enforced:    true,
		maxAttempts: DefaultMaxFailedAttempts,
		lockout:     DefaultLockoutDuration,
		window:      DefaultAttemptWindow,
		now:         time.Now,
	}
}

// NewDisabledLockoutTracker creates a tracker in disabled mode. Used when no
// counter store is configured; every status is clean.
func NewDisabledLockoutTracker(logger *slog.Logger) *LockoutTracker {
	t := NewLockoutTracker(nil, logger)
	t.enforced = false
	return t
}

func attemptsKey(identifier string) string { return "auth:failed_attempts:" + identifier }
func lockoutKey(identifier string) string  { return "auth:lockout:" + identifier }

func (t *LockoutTracker) cleanStatus() LockoutStatus {
	return LockoutStatus{RemainingAttempts: t.maxAttempts}
}

// CheckStatus reports the lockout state without mutating it.
func (t *LockoutTracker) CheckStatus(ctx context.Context, identifier string) LockoutStatus {
	if !t.enforced {
		return t.cleanStatus()
	}

	attempts := t.getInt(ctx, attemptsKey(identifier))

	if expiryMilli := t.getInt(ctx, lockoutKey(identifier)); expiryMilli > t.now().UnixMilli() {
		endsAt := time.UnixMilli(expiryMilli)
		return LockoutStatus{
			IsLocked:       true,
			FailedAttempts: int(attempts),
			LockoutEndsAt:  &endsAt,
		}
	}

	remaining := t.maxAttempts - int(attempts)
	if remaining < 0 {
		remaining = 0
	}
	return LockoutStatus{
		RemainingAttempts: remaining,
		FailedAttempts:    int(attempts),
	}
}

// RecordFailure increments the failure counter for identifier and escalates
// to a lockout once the threshold is reached.
func (t *LockoutTracker) RecordFailure(ctx context.Context, identifier string) LockoutStatus {
	if !t.enforced {
		return t.cleanStatus()
	}

	key := attemptsKey(identifier)
	attempts, err := t.store.Incr(ctx, key)
	if err != nil {
		t.failOpen("incr", identifier, err)
		return t.cleanStatus()
	}

	// The counting window starts on the first failure and resets untouched
	// counters after it lapses.
	if attempts == 1 {
		if err := t.store.Expire(ctx, key, t.window); err != nil {
			t.failOpen("expire", identifier, err)
		}
	}

	if attempts >= int64(t.maxAttempts) {
		endsAt := t.now().Add(t.lockout)
		val := strconv.FormatInt(endsAt.UnixMilli(), 10)
		if err := t.store.SetWithTTL(ctx, lockoutKey(identifier), val, t.lockout); err != nil {
			t.failOpen("set lockout", identifier, err)
			return t.cleanStatus()
		}
		return LockoutStatus{
			IsLocked:       true,
			FailedAttempts: int(attempts),
			LockoutEndsAt:  &endsAt,
		}
	}

	return LockoutStatus{
		RemainingAttempts: t.maxAttempts - int(attempts),
		FailedAttempts:    int(attempts),
	}
}

// Clear removes the failure counter and any lockout marker. Called exactly
// once, immediately after a successful authentication of the identifier.
func (t *LockoutTracker) Clear(ctx context.Context, identifier string) {
	if !t.enforced {
		return
	}
	if err := t.store.Delete(ctx, attemptsKey(identifier), lockoutKey(identifier)); err != nil {
		t.failOpen("clear", identifier, err)
	}
}

func (t *LockoutTracker) getInt(ctx context.Context, key string) int64 {
	val, err := t.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			t.failOpen("get", key, err)
		}
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (t *LockoutTracker) failOpen(op, key string, err error) {
	if t.logger != nil {
		t.logger.Warn("lockout store unavailable, failing open", "op", op, "key", key, "error", err)
	}
}
