package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

const SignatureHeader = "X-Hub-Signature-256"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrMissingSecret    = errors.New("webhook app secret not configured")
)

// Sign returns the "sha256=<hex>" HMAC of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC of the exact raw body.
func VerifySignature(secret string, header string, body []byte) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if secret == "" {
		return ErrMissingSecret
	}
	if !hmac.Equal([]byte(header), []byte(Sign(secret, body))) {
		return ErrInvalidSignature
	}
	return nil
}
