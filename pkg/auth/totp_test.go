package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

func provisionTestSecret(t *testing.T) (secret, uri string) {
	t.Helper()
	engine := NewTOTPEngine("Test")
	secret, uri, err := engine.Provision("user@example.com")
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	return secret, uri
}

func codeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom() error = %v", err)
	}
	return code
}

func TestProvision_URI(t *testing.T) {
	_, uri := provisionTestSecret(t)

	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Errorf("URI should be an otpauth totp URI, got %s", uri)
	}
	if !strings.Contains(uri, "Test") {
		t.Errorf("URI should carry the issuer, got %s", uri)
	}
	if !strings.Contains(uri, "user%40example.com") && !strings.Contains(uri, "user@example.com") {
		t.Errorf("URI should carry the account name, got %s", uri)
	}
}

func TestProvision_FreshSecrets(t *testing.T) {
	engine := NewTOTPEngine("Test")
	a, _, _ := engine.Provision("user@example.com")
	b, _, _ := engine.Provision("user@example.com")
	if a == b {
		t.Error("consecutive provisions must produce different secrets")
	}
}

func TestVerifyTOTPAt_Window(t *testing.T) {
	secret, _ := provisionTestSecret(t)
	now := time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC)

	tests := []struct {
		name   string
		codeAt time.Time
		want   bool
	}{
		{"current step", now, true},
		{"one step behind", now.Add(-totpPeriod * time.Second), true},
		{"one step ahead", now.Add(totpPeriod * time.Second), true},
		{"two steps behind", now.Add(-2 * totpPeriod * time.Second), false},
		{"two steps ahead", now.Add(2 * totpPeriod * time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := codeAt(t, secret, tt.codeAt)
			if got := verifyTOTPAt(secret, code, now); got != tt.want {
				t.Errorf("verifyTOTPAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyTOTPAt_MalformedCodes(t *testing.T) {
	secret, _ := provisionTestSecret(t)
	now := time.Now()

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef", "12 456"} {
		if verifyTOTPAt(secret, code, now) {
			t.Errorf("verifyTOTPAt(%q) = true, want false", code)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	secretA, _ := provisionTestSecret(t)
	secretB, _ := provisionTestSecret(t)
	now := time.Now()

	code := codeAt(t, secretA, now)
	if verifyTOTPAt(secretB, code, now) {
		t.Error("a code for one secret must not verify against another")
	}
}

func TestQRCodeDataURI(t *testing.T) {
	engine := NewTOTPEngine("Test")
	_, uri := provisionTestSecret(t)

	dataURI, err := engine.QRCodeDataURI(uri)
	if err != nil {
		t.Fatalf("QRCodeDataURI() error = %v", err)
	}
	if !strings.HasPrefix(dataURI, "data:image/png;base64,") {
		t.Errorf("expected PNG data URI, got prefix %q", dataURI[:min(40, len(dataURI))])
	}

	if _, err := engine.QRCodeDataURI("not a uri"); err == nil {
		t.Error("expected error for invalid provisioning URI")
	}
}
