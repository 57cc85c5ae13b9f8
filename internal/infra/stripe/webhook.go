package stripe

import (
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// ErrSignature is returned for payloads that fail verification.
var ErrSignature = errors.New("stripe signature verification failed")

// Webhook verifies and translates Stripe events.
type Webhook struct {
	secret string
}

func NewWebhook(secret string) *Webhook {
	return &Webhook{secret: secret}
}

// Parse verifies payload and returns the payment it reports, or nil for
// events that carry no payment.
func (w *Webhook) Parse(payload []byte, signature string) (*billing.CustomerPaid, error) {
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		w.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return nil, errors.Join(ErrSignature, err)
	}

	switch event.Type {
	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, billing.Invalid("payload", "malformed invoice: "+err.Error())
		}
		if !invoicePaid(&inv) || inv.Customer == nil || inv.Customer.ID == "" {
			return nil, nil
		}
		return &billing.CustomerPaid{
			Method:       students.Stripe,
			CustomerID:   inv.Customer.ID,
			Amount:       decimal.New(inv.AmountPaid, -2),
			Fees:         decimal.Zero,
			ExternalRef:  inv.ID,
			ClearingData: event.Data.Raw,
		}, nil
	default:
		return nil, nil
	}
}
