// AngelaMos | 2026
// verify_test.go

package billing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func TestVerifySignatureRoundTrip(t *testing.T) {
	body := []byte(`{"event_id":"evt_1","event_type":"subscription.created"}`)
	now := time.Unix(1770000000, 0)

	header := SignPayload(testSecret, now.Unix(), body)

	err := VerifySignature(testSecret, header, body, now, DefaultSignatureTolerance)
	assert.NoError(t, err)
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	body := []byte(`{"event_id":"evt_1"}`)
	now := time.Unix(1770000000, 0)
	header := SignPayload(testSecret, now.Unix(), body)

	tampered := []byte(`{"event_id":"evt_2"}`)

	err := VerifySignature(testSecret, header, tampered, now, DefaultSignatureTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureWrongSecret(t *testing.T) {
	body := []byte(`{}`)
	now := time.Unix(1770000000, 0)
	header := SignPayload("whsec_other", now.Unix(), body)

	err := VerifySignature(testSecret, header, body, now, DefaultSignatureTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureMissingHeader(t *testing.T) {
	err := VerifySignature(testSecret, "", []byte(`{}`), time.Now(), 0)
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	for _, header := range []string{
		"garbage",
		"ts=123",
		"h1=deadbeef",
		"ts=notanumber;h1=deadbeef",
	} {
		err := VerifySignature(testSecret, header, []byte(`{}`), time.Now(), 0)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header=%q", header)
	}
}

func TestVerifySignatureTimestampTolerance(t *testing.T) {
	body := []byte(`{}`)
	now := time.Unix(1770000000, 0)

	stale := SignPayload(testSecret, now.Add(-10*time.Minute).Unix(), body)
	err := VerifySignature(testSecret, stale, body, now, 5*time.Minute)
	require.ErrorIs(t, err, ErrInvalidSignature)

	recent := SignPayload(testSecret, now.Add(-time.Minute).Unix(), body)
	err = VerifySignature(testSecret, recent, body, now, 5*time.Minute)
	assert.NoError(t, err)
}

func TestSignPayloadFormat(t *testing.T) {
	header := SignPayload(testSecret, 1770000000, []byte(`{}`))

	assert.True(t, strings.HasPrefix(header, "ts=1770000000;h1="))
}
