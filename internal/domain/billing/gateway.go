package billing

import (
	"context"

	"github.com/shopspring/decimal"

	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
)

// InvoiceRequest asks a gateway for a hosted checkout.
type InvoiceRequest struct {
	Student     *students.Student
	PlanCode    plans.Code
	Charges     []Charge
	Amount      decimal.Decimal
	Description string
}

// Checkout is what a gateway hands back for a new invoice.
type Checkout struct {
	URL        string
	ExternalID string
	// CustomerID is set when the gateway created a customer for the student.
	CustomerID string
}

// Gateway opens hosted checkouts. Failures are GatewayError.
type Gateway interface {
	Method() students.PaymentMethod
	RequestInvoice(ctx context.Context, req InvoiceRequest) (Checkout, error)
}

// InvoiceSettled reports that a gateway invoice we created was paid in full.
type InvoiceSettled struct {
	Method       students.PaymentMethod
	ExternalID   string
	ClearingData []byte
}

// CustomerPaid reports money from a gateway customer, to be matched to an
// outstanding invoice by amount.
type CustomerPaid struct {
	Method       students.PaymentMethod
	CustomerID   string
	Amount       decimal.Decimal
	Fees         decimal.Decimal
	ExternalRef  string
	ClearingData []byte
}
