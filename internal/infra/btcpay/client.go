// Package btcpay talks to a BTCPay Server Greenfield store.
package btcpay

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeebo/errs"
)

// Error is the class of BTCPay call failures.
var Error = errs.Class("btcpay")

// Currency is the settlement currency of every invoice.
const Currency = "EUR"

type InvoiceForm struct {
	Amount   decimal.Decimal   `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Invoice struct {
	ID           string          `json:"id"`
	CheckoutLink string          `json:"checkoutLink"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient targets baseURL. With a storeID the Greenfield store path is
// appended; without one baseURL must already point at the store.
func NewClient(baseURL, storeID, apiKey string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if storeID != "" {
		base += "/api/v1/stores/" + storeID
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: base,
		apiKey:  apiKey,
	}
}

func (c *Client) CreateInvoice(ctx context.Context, form InvoiceForm) (*Invoice, error) {
	var inv Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", form, &inv); err != nil {
		return nil, err
	}
	if inv.ID == "" || inv.CheckoutLink == "" {
		return nil, Error.New("invoice response missing id or checkout link")
	}
	return &inv, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (err error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Error.Wrap(err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Error.Wrap(err)
	}
	req.Header.Set("Authorization", "token "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, resp.Body.Close()) }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Error.New("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Error.New("decode %s: %v", path, err)
	}
	return nil
}
