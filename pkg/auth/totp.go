package auth

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30
	totpSkew   = 1 // ±30 seconds clock drift
)

// TOTPEngine generates and verifies time-based one-time passwords.
// It holds no state and persists nothing; storing a provisioned secret is
// the caller's responsibility.
type TOTPEngine struct {
	issuer string
}

// NewTOTPEngine creates a TOTP engine scoped to the deploying application.
func NewTOTPEngine(issuer string) *TOTPEngine {
	return &TOTPEngine{issuer: issuer}
}

// Provision generates a fresh random secret and its provisioning URI
// (SHA-1, 6 digits, 30-second period).
func (e *TOTPEngine) Provision(email string) (secret, uri string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key.Secret(), key.String(), nil
}

// QRCodeDataURI renders a provisioning URI as a PNG data URI suitable for
// direct display in an <img> tag.
func (e *TOTPEngine) QRCodeDataURI(uri string) (string, error) {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("invalid provisioning URI: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return "", fmt.Errorf("failed to generate QR code image: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Verify validates a 6-digit code against the current time step, tolerating
// one step of drift in either direction. Malformed input is rejected without
// error.
func (e *TOTPEngine) Verify(secret, code string) bool {
	return verifyTOTPAt(secret, code, time.Now())
}

func verifyTOTPAt(secret, code string, at time.Time) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
