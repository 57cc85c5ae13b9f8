package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-billing/internal/domain/students"
)

const testSecret = "whsec_test"

// sign builds a Stripe-Signature header for payload.
func sign(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func invoiceEvent(paid bool) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "invoice.payment_succeeded",
		"data": {"object": {
			"id": "in_123",
			"object": "invoice",
			"customer": "cus_42",
			"amount_paid": 13050,
			"paid": %t,
			"status": "open"
		}}
	}`, paid))
}

func TestParsePaymentSucceeded(t *testing.T) {
	w := NewWebhook(testSecret)
	payload := invoiceEvent(true)

	ev, err := w.Parse(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, students.Stripe, ev.Method)
	assert.Equal(t, "cus_42", ev.CustomerID)
	assert.Equal(t, "in_123", ev.ExternalRef)
	assert.True(t, ev.Amount.Equal(decimal.RequireFromString("130.50")))
	assert.Contains(t, string(ev.ClearingData), "in_123")
}

func TestParseUnpaidInvoiceIgnored(t *testing.T) {
	w := NewWebhook(testSecret)
	payload := invoiceEvent(false)

	ev, err := w.Parse(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParseOtherEventsIgnored(t *testing.T) {
	w := NewWebhook(testSecret)
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{}}}`)

	ev, err := w.Parse(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestParseRejectsBadSignature(t *testing.T) {
	w := NewWebhook(testSecret)
	payload := invoiceEvent(true)

	_, err := w.Parse(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, ErrSignature)

	_, err = w.Parse(payload, "")
	assert.ErrorIs(t, err, ErrSignature)
}
