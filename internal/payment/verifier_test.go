package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testSecret = "whsec_test"

// signPayload produces a valid header value for the given timestamp.
func signPayload(t *testing.T, secret string, ts int64, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func newTestVerifier(now time.Time) *HMACVerifier {
	v := NewHMACVerifier(testSecret, DefaultTolerance)
	v.now = func() time.Time { return now }
	return v
}

func TestVerifyValidSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{"type":"checkout.session.completed","data":{"booking_id":"bk-1"}}`)
	header := signPayload(t, testSecret, now.Unix(), payload)
	assert.NoError(t, v.Verify(payload, header))
}

func TestVerifyWithinTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{}`)
	// Four minutes old sits inside the five-minute tolerance.
	header := signPayload(t, testSecret, now.Add(-4*time.Minute).Unix(), payload)
	assert.NoError(t, v.Verify(payload, header))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	header := signPayload(t, testSecret, now.Unix(), []byte(`{"amount":100}`))
	err := v.Verify([]byte(`{"amount":999}`), header)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{}`)
	header := signPayload(t, "whsec_other", now.Unix(), payload)
	assert.ErrorIs(t, v.Verify(payload, header), ErrSignatureInvalid)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{}`)
	header := signPayload(t, testSecret, now.Add(-6*time.Minute).Unix(), payload)
	assert.ErrorIs(t, v.Verify(payload, header), ErrSignatureInvalid)
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{}`)
	header := signPayload(t, testSecret, now.Add(10*time.Minute).Unix(), payload)
	assert.ErrorIs(t, v.Verify(payload, header), ErrSignatureInvalid)
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(now)
	payload := []byte(`{}`)
	for _, header := range []string{
		"",
		"garbage",
		"t=notanumber,v1=abcd",
		fmt.Sprintf("t=%d", now.Unix()),                // signature part missing
		"v1=deadbeef",                                  // timestamp part missing
		fmt.Sprintf("t=%d,v1=zzzz", now.Unix()),        // not hex
		fmt.Sprintf("t=%d,v2=deadbeef", now.Unix()),    // unknown scheme only
	} {
		assert.ErrorIs(t, v.Verify(payload, header), ErrSignatureInvalid, "header %q", header)
	}
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"type":"checkout.session.completed","data":{"booking_id":"bk-1"}}`))
	assert.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, "bk-1", ev.Data.BookingID)

	_, err = ParseEvent([]byte(`not json`))
	assert.Error(t, err)
}
