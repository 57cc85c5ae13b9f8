package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v75"
)

// invoicePaid normalizes the ways Stripe reports a settled invoice.
func invoicePaid(inv *stripe.Invoice) bool {
	if inv == nil {
		return false
	}
	if inv.Paid {
		return true
	}
	switch strings.TrimSpace(string(inv.Status)) {
	case "paid":
		return true
	default:
		return false
	}
}
