package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(t *testing.T, secret string, ts int64, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func header(ts int64, sigs ...string) string {
	h := fmt.Sprintf("t=%d", ts)
	for _, s := range sigs {
		h += ",v1=" + s
	}
	return h
}

func TestVerifyEvent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := &Client{WebhookSecret: testSecret, now: func() time.Time { return now }}

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","amount_total":1200,"metadata":{"orderId":"o1"}}}}`)

	t.Run("valid signature", func(t *testing.T) {
		h := header(now.Unix(), sign(t, testSecret, now.Unix(), payload))
		ev, err := c.VerifyEvent(payload, h)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", ev.ID)
		assert.Equal(t, EventCheckoutSessionCompleted, ev.Type)

		cs, err := ev.CheckoutSession()
		require.NoError(t, err)
		assert.Equal(t, int64(1200), cs.AmountTotal)
		assert.Equal(t, "o1", cs.Metadata["orderId"])
	})

	t.Run("one valid signature among several is enough", func(t *testing.T) {
		h := header(now.Unix(), "deadbeef", sign(t, testSecret, now.Unix(), payload))
		_, err := c.VerifyEvent(payload, h)
		assert.NoError(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		h := header(now.Unix(), sign(t, "whsec_other", now.Unix(), payload))
		_, err := c.VerifyEvent(payload, h)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("tampered body", func(t *testing.T) {
		h := header(now.Unix(), sign(t, testSecret, now.Unix(), payload))
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = 'X'
		_, err := c.VerifyEvent(tampered, h)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("timestamp outside tolerance", func(t *testing.T) {
		old := now.Add(-6 * time.Minute).Unix()
		h := header(old, sign(t, testSecret, old, payload))
		_, err := c.VerifyEvent(payload, h)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("timestamp just inside tolerance", func(t *testing.T) {
		ts := now.Add(-4 * time.Minute).Unix()
		h := header(ts, sign(t, testSecret, ts, payload))
		_, err := c.VerifyEvent(payload, h)
		assert.NoError(t, err)
	})

	t.Run("malformed headers", func(t *testing.T) {
		for _, h := range []string{
			"",
			"garbage",
			"t=notanumber,v1=abc",
			fmt.Sprintf("t=%d", now.Unix()), // no signature
			"v1=" + sign(t, testSecret, now.Unix(), payload), // no timestamp
		} {
			_, err := c.VerifyEvent(payload, h)
			assert.ErrorIs(t, err, ErrSignatureInvalid, "header %q", h)
		}
	})

	t.Run("valid signature over invalid json", func(t *testing.T) {
		bad := []byte("not json")
		h := header(now.Unix(), sign(t, testSecret, now.Unix(), bad))
		_, err := c.VerifyEvent(bad, h)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSignatureInvalid)
	})
}
