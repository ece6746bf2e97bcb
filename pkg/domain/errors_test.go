package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLockedOutError_Message(t *testing.T) {
	err := &LockedOutError{EndsAt: time.Now().Add(14*time.Minute + 30*time.Second)}
	if got := err.Error(); got != "Account temporarily locked. Try again in 15 minute(s)." {
		t.Errorf("Error() = %q", got)
	}

	// Lapsed lockouts still render at least one minute.
	stale := &LockedOutError{EndsAt: time.Now().Add(-time.Minute)}
	if !strings.Contains(stale.Error(), "1 minute(s)") {
		t.Errorf("Error() = %q, want 1 minute floor", stale.Error())
	}
}

func TestLockedOutError_As(t *testing.T) {
	var err error = &LockedOutError{EndsAt: time.Now()}
	var locked *LockedOutError
	if !errors.As(err, &locked) {
		t.Error("errors.As should match *LockedOutError")
	}
}
