package billing

import "github.com/zeebo/errs"

var (
	// ValidationError is bad caller input. Never retried.
	ValidationError = errs.Class("validation")
	// NotFoundError is a missing record. Webhooks treat it as "nothing to do".
	NotFoundError = errs.Class("not found")
	// GatewayError is a failed call to a payment gateway.
	GatewayError = errs.Class("gateway")
	// InconsistentPriceError is a configured price the gateway cannot resolve.
	InconsistentPriceError = errs.Class("inconsistent price")
	// PersistenceError wraps storage failures.
	PersistenceError = errs.Class("persistence")
)

// Invalid builds a ValidationError naming the offending field.
func Invalid(field, message string) error {
	return ValidationError.New("%s: %s", field, message)
}
