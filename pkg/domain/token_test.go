package domain

import (
	"testing"
	"time"
)

func TestAuthTokenExpired_Boundary(t *testing.T) {
	expiresAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := AuthToken{ExpiresAt: expiresAt}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiry", expiresAt.Add(-time.Millisecond), false},
		{"exactly at expiry", expiresAt, true},
		{"after expiry", expiresAt.Add(time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := token.Expired(tt.now); got != tt.want {
				t.Errorf("Expired(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
