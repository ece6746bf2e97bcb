package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/kv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMemoryTracker() *LockoutTracker {
	return NewLockoutTracker(kv.NewMemoryStore(), testLogger())
}

func TestLockoutTracker_EscalatesAtThreshold(t *testing.T) {
	ctx := context.Background()
	tracker := newMemoryTracker()

	for i := 1; i < DefaultMaxFailedAttempts; i++ {
		status := tracker.RecordFailure(ctx, "user@example.com")
		if status.IsLocked {
			t.Fatalf("locked after %d failure(s), threshold is %d", i, DefaultMaxFailedAttempts)
		}
		if status.RemainingAttempts != DefaultMaxFailedAttempts-i {
			t.Errorf("after %d failures RemainingAttempts = %d, want %d",
				i, status.RemainingAttempts, DefaultMaxFailedAttempts-i)
		}
	}

	status := tracker.RecordFailure(ctx, "user@example.com")
	if !status.IsLocked {
		t.Fatal("expected lockout at threshold")
	}
	if status.LockoutEndsAt == nil {
		t.Fatal("locked status must carry LockoutEndsAt")
	}
	until := time.Until(*status.LockoutEndsAt)
	if until <= 0 || until > DefaultLockoutDuration {
		t.Errorf("LockoutEndsAt %v out of range", until)
	}
}

func TestLockoutTracker_CheckStatusReflectsLock(t *testing.T) {
	ctx := context.Background()
	tracker := newMemoryTracker()

	if status := tracker.CheckStatus(ctx, "user@example.com"); status.IsLocked {
		t.Fatal("fresh identifier should not be locked")
	}

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		tracker.RecordFailure(ctx, "user@example.com")
	}

	status := tracker.CheckStatus(ctx, "user@example.com")
	if !status.IsLocked {
		t.Fatal("expected locked status")
	}

	// Other identifiers are unaffected.
	if other := tracker.CheckStatus(ctx, "other@example.com"); other.IsLocked {
		t.Error("lockout must be per identifier")
	}
}

func TestLockoutTracker_ClearResets(t *testing.T) {
	ctx := context.Background()
	tracker := newMemoryTracker()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		tracker.RecordFailure(ctx, "user@example.com")
	}
	tracker.Clear(ctx, "user@example.com")

	status := tracker.CheckStatus(ctx, "user@example.com")
	if status.IsLocked {
		t.Error("Clear should remove the lockout marker")
	}
	if status.FailedAttempts != 0 {
		t.Errorf("FailedAttempts = %d after Clear, want 0", status.FailedAttempts)
	}

	// Counting starts over.
	if got := tracker.RecordFailure(ctx, "user@example.com"); got.RemainingAttempts != DefaultMaxFailedAttempts-1 {
		t.Errorf("RemainingAttempts = %d after Clear+1 failure, want %d",
			got.RemainingAttempts, DefaultMaxFailedAttempts-1)
	}
}

func TestLockoutTracker_LockExpires(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tracker := NewLockoutTracker(kv.NewRedisStore(client), testLogger())

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		tracker.RecordFailure(ctx, "user@example.com")
	}
	if !tracker.CheckStatus(ctx, "user@example.com").IsLocked {
		t.Fatal("expected locked status")
	}

	mr.FastForward(DefaultLockoutDuration + time.Second)

	if tracker.CheckStatus(ctx, "user@example.com").IsLocked {
		t.Error("lockout should lapse after its duration")
	}
}

func TestLockoutTracker_WindowResetsCounter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	tracker := NewLockoutTracker(kv.NewRedisStore(client), testLogger())

	tracker.RecordFailure(ctx, "user@example.com")
	tracker.RecordFailure(ctx, "user@example.com")

	mr.FastForward(DefaultAttemptWindow + time.Second)

	status := tracker.RecordFailure(ctx, "user@example.com")
	if status.FailedAttempts != 1 {
		t.Errorf("FailedAttempts = %d after window lapse, want 1", status.FailedAttempts)
	}
}

func TestDisabledLockoutTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewDisabledLockoutTracker(testLogger())

	for i := 0; i < DefaultMaxFailedAttempts*2; i++ {
		if status := tracker.RecordFailure(ctx, "user@example.com"); status.IsLocked {
			t.Fatal("disabled tracker must never lock")
		}
	}
	if status := tracker.CheckStatus(ctx, "user@example.com"); status.IsLocked || status.FailedAttempts != 0 {
		t.Error("disabled tracker must report a clean status")
	}
	tracker.Clear(ctx, "user@example.com") // must not panic with nil store
}

func TestLockoutStatus_Message(t *testing.T) {
	endsAt := time.Now().Add(14*time.Minute + 30*time.Second)

	tests := []struct {
		name   string
		status LockoutStatus
		want   string
	}{
		{
			"clean",
			LockoutStatus{RemainingAttempts: 5},
			"",
		},
		{
			"attempts remaining",
			LockoutStatus{FailedAttempts: 2, RemainingAttempts: 3},
			"3 attempt(s) remaining before account lockout.",
		},
		{
			"locked with deadline",
			LockoutStatus{IsLocked: true, LockoutEndsAt: &endsAt},
			"Account temporarily locked. Try again in 15 minute(s).",
		},
		{
			"locked without deadline",
			LockoutStatus{IsLocked: true},
			"Account temporarily locked. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLockoutKeys(t *testing.T) {
	if got := attemptsKey("a@b.c"); !strings.HasPrefix(got, "auth:failed_attempts:") {
		t.Errorf("attemptsKey = %q", got)
	}
	if got := lockoutKey("a@b.c"); !strings.HasPrefix(got, "auth:lockout:") {
		t.Errorf("lockoutKey = %q", got)
	}
}
