package btcpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// SignatureHeader carries "sha256=<hex hmac of body>".
const SignatureHeader = "BTCPay-Sig"

const EventInvoiceSettled = "InvoiceSettled"

var ErrSignature = errors.New("btcpay signature verification failed")

type Event struct {
	DeliveryID         string `json:"deliveryId"`
	WebhookID          string `json:"webhookId"`
	OriginalDeliveryID string `json:"originalDeliveryId"`
	IsRedelivery       bool   `json:"isRedelivery"`
	Type               string `json:"type"`
	Timestamp          int64  `json:"timestamp"`
	StoreID            string `json:"storeId"`
	InvoiceID          string `json:"invoiceId"`
}

type Webhook struct {
	secret []byte
}

func NewWebhook(secret string) *Webhook {
	return &Webhook{secret: []byte(secret)}
}

func (w *Webhook) Verify(payload []byte, signature string) error {
	sig, ok := strings.CutPrefix(strings.TrimSpace(signature), "sha256=")
	if !ok {
		return ErrSignature
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return ErrSignature
	}
	mac := hmac.New(sha256.New, w.secret)
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignature
	}
	return nil
}

// Parse verifies payload and returns the settlement it reports, or nil for
// any other event type.
func (w *Webhook) Parse(payload []byte, signature string) (*billing.InvoiceSettled, error) {
	if err := w.Verify(payload, signature); err != nil {
		return nil, err
	}
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, billing.Invalid("payload", "malformed event: "+err.Error())
	}
	if ev.Type != EventInvoiceSettled || ev.InvoiceID == "" {
		return nil, nil
	}
	return &billing.InvoiceSettled{
		Method:       students.BtcPay,
		ExternalID:   ev.InvoiceID,
		ClearingData: payload,
	}, nil
}

// Sign computes the header value BTCPay sends for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
