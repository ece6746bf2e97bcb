// Package kv provides the shared keyed counter/expiry store backing the
// lockout tracker and transport-level rate limiting.
//
// Two backends exist behind one interface: redis for multi-process
// deployments and an in-process map for single-process ones. Increment,
// set-with-TTL and delete are atomic at the store level; callers do no
// locking of their own.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is a keyed counter store with expiry.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Incr atomically increments the integer counter at key, creating it
	// at 1 if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a time-to-live on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SetWithTTL stores value under key with an absolute time-to-live.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
