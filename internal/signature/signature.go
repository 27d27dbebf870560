// Package signature verifies that inbound webhook requests were sent by Slack.
//
// Slack signs every request with the app's signing secret:
//
//	X-Slack-Signature: v0=hex(HMAC-SHA256(secret, "v0:" + X-Slack-Request-Timestamp + ":" + body))
//
// Verification fails closed: a missing header or an unset secret is a rejection.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

const (
	Version = "v0"

	TimestampHeader = "X-Slack-Request-Timestamp"
	SignatureHeader = "X-Slack-Signature"
)

var (
	ErrMissingHeaders = errors.New("missing signature headers")
	ErrMissingSecret  = errors.New("signing secret not configured")
	ErrBadSignature   = errors.New("bad signature")
)

// Compute returns the signature header value Slack would send for body at timestamp.
func Compute(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(Version + ":" + timestamp + ":"))
	_, _ = mac.Write(body)
	return Version + "=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature headers in h against body.
func Verify(secret string, h http.Header, body []byte) error {
	if secret == "" {
		return ErrMissingSecret
	}
	timestamp := strings.TrimSpace(h.Get(TimestampHeader))
	provided := strings.TrimSpace(h.Get(SignatureHeader))
	if timestamp == "" || provided == "" {
		return ErrMissingHeaders
	}

	expected := Compute(secret, timestamp, body)
	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrBadSignature
	}
	return nil
}
