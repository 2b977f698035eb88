// AngelaMos | 2026
// verify.go

package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader carries the provider signature in the form
// "ts=<unix seconds>;h1=<hex hmac-sha256 of 'ts:body'>".
const SignatureHeader = "Webhook-Signature"

// DefaultSignatureTolerance bounds how far a signed timestamp may drift
// from the receiving clock before the payload is treated as a replay.
const DefaultSignatureTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// VerifySignature checks the raw request body against the shared secret.
// It runs before any parsing or business logic: a failure here is a
// security boundary, not a business rule.
func VerifySignature(
	secret, header string,
	body []byte,
	now time.Time,
	tolerance time.Duration,
) error {
	if header == "" {
		return ErrMissingSignature
	}

	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		signedAt := time.Unix(ts, 0)
		drift := now.Sub(signedAt)
		if drift < -tolerance || drift > tolerance {
			return fmt.Errorf("signature timestamp outside tolerance: %w",
				ErrInvalidSignature)
		}
	}

	expected := computeSignature(secret, ts, body)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) != 1 {
		return ErrInvalidSignature
	}

	return nil
}

// SignPayload produces a header value for the given body, used by tests and
// by the local webhook replay tooling.
func SignPayload(secret string, ts int64, body []byte) string {
	return fmt.Sprintf("ts=%d;h1=%s", ts, computeSignature(secret, ts, body))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var tsPart, sigPart string

	for _, part := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			tsPart = value
		case "h1":
			sigPart = value
		}
	}

	if tsPart == "" || sigPart == "" {
		return 0, "", fmt.Errorf("malformed signature header: %w",
			ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed signature timestamp: %w",
			ErrInvalidSignature)
	}

	return ts, sigPart, nil
}

func computeSignature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d:", ts)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
