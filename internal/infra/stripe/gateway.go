package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v75"
	"github.com/zeebo/errs"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
)

// Error is the class of Stripe call failures.
var Error = errs.Class("stripe")

const customerPage = 10

// Gateway opens Stripe checkout sessions with one line item per unpaid charge.
type Gateway struct {
	client         Client
	prices         plans.StripePrices
	checkoutDomain string
}

func NewGateway(client Client, prices plans.StripePrices, checkoutDomain string) *Gateway {
	return &Gateway{client: client, prices: prices, checkoutDomain: checkoutDomain}
}

// customerFor returns the Stripe customer tagged with the student's id,
// creating it on first use. A checkout that failed after the customer was
// created finds it again here.
func (g *Gateway) customerFor(ctx context.Context, st *students.Student) (*stripe.Customer, error) {
	id := fmt.Sprint(st.ID)

	list := &stripe.CustomerListParams{Email: stripe.String(st.Email)}
	list.Limit = stripe.Int64(customerPage)
	list.Context = ctx
	found, err := g.client.Customers().List(list)
	if err != nil {
		return nil, err
	}
	for _, cus := range found {
		if cus.Metadata["student_id"] == id {
			return cus, nil
		}
	}

	params := &stripe.CustomerParams{
		Email:    stripe.String(st.Email),
		Name:     stripe.String(st.FullName),
		Metadata: map[string]string{"student_id": id},
	}
	params.Context = ctx
	return g.client.Customers().New(params)
}

func (g *Gateway) Method() students.PaymentMethod { return students.Stripe }

func (g *Gateway) RequestInvoice(ctx context.Context, req billing.InvoiceRequest) (billing.Checkout, error) {
	var checkout billing.Checkout

	customerID := ""
	if req.Student.StripeCustomerID != nil && *req.Student.StripeCustomerID != "" {
		customerID = *req.Student.StripeCustomerID
	} else {
		cus, err := g.customerFor(ctx, req.Student)
		if err != nil {
			return checkout, billing.GatewayError.Wrap(Error.Wrap(err))
		}
		customerID = cus.ID
		checkout.CustomerID = cus.ID
	}

	prices := g.prices.ByPlanCode(req.PlanCode)
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Charges))
	for _, c := range req.Charges {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(c.PriceRef(prices)),
			Quantity: stripe.Int64(1),
		})
	}
	if len(lineItems) == 0 {
		return checkout, billing.Invalid("charges", "nothing to check out")
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL:         stripe.String(g.checkoutDomain + "/payments/success"),
		CancelURL:          stripe.String(g.checkoutDomain + "/payments/canceled"),
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:          lineItems,
		ClientReferenceID:  stripe.String(fmt.Sprint(req.Student.ID)),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"student_id": fmt.Sprint(req.Student.ID)},
		},
	}
	params.Context = ctx

	s, err := g.client.CheckoutSessions().New(params)
	if err != nil {
		return checkout, billing.GatewayError.Wrap(Error.Wrap(err))
	}
	checkout.URL = s.URL
	checkout.ExternalID = s.ID
	return checkout, nil
}

// ValidatePrices retrieves every configured price. Any failure is an
// InconsistentPriceError and should stop startup.
func ValidatePrices(ctx context.Context, client Client, prices plans.StripePrices) error {
	var group errs.Group
	for _, id := range prices.All() {
		params := &stripe.PriceParams{}
		params.Context = ctx
		if id == "" {
			group.Add(billing.InconsistentPriceError.New("empty price id"))
			continue
		}
		if _, err := client.Prices().Get(id, params); err != nil {
			group.Add(billing.InconsistentPriceError.New("price %s: %v", id, err))
		}
	}
	return group.Err()
}
