package btcpay

import (
	"context"
	"fmt"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// Gateway opens one lump-sum invoice per request, ignoring line items.
type Gateway struct {
	client *Client
}

func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

func (g *Gateway) Method() students.PaymentMethod { return students.BtcPay }

func (g *Gateway) RequestInvoice(ctx context.Context, req billing.InvoiceRequest) (billing.Checkout, error) {
	if !req.Amount.IsPositive() {
		return billing.Checkout{}, billing.Invalid("amount", "cannot request empty amount")
	}
	inv, err := g.client.CreateInvoice(ctx, InvoiceForm{
		Amount:   req.Amount,
		Currency: Currency,
		Metadata: map[string]string{
			"studentId": fmt.Sprint(req.Student.ID),
			"itemDesc":  req.Description,
		},
	})
	if err != nil {
		return billing.Checkout{}, billing.GatewayError.Wrap(err)
	}
	return billing.Checkout{URL: inv.CheckoutLink, ExternalID: inv.ID}, nil
}
