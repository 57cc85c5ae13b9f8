package stripe

import (
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"github.com/stripe/stripe-go/v75/customer"
)

// requestTimeout keeps a single Stripe call well inside the student lock ttl.
const requestTimeout = 20 * time.Second

// Client is the subset of the Stripe API the gateway uses.
type Client interface {
	Customers() Customers
	CheckoutSessions() CheckoutSessions
	Prices() Prices
}

type Customers interface {
	New(params *stripe.CustomerParams) (*stripe.Customer, error)
	// List returns the first page of customers matching params.
	List(params *stripe.CustomerListParams) ([]*stripe.Customer, error)
}

type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Prices interface {
	Get(id string, params *stripe.PriceParams) (*stripe.Price, error)
}

type apiClient struct {
	api *client.API
}

// NewClient builds a Client on the real Stripe API.
func NewClient(secretKey string) Client {
	backends := stripe.NewBackends(&http.Client{Timeout: requestTimeout})
	return &apiClient{api: client.New(secretKey, backends)}
}

func (c *apiClient) Customers() Customers { return apiCustomers{c.api.Customers} }

func (c *apiClient) CheckoutSessions() CheckoutSessions { return c.api.CheckoutSessions }

func (c *apiClient) Prices() Prices { return c.api.Prices }

type apiCustomers struct {
	*customer.Client
}

func (c apiCustomers) List(params *stripe.CustomerListParams) ([]*stripe.Customer, error) {
	it := c.Client.List(params)
	var out []*stripe.Customer
	for len(out) < customerPage && it.Next() {
		out = append(out, it.Customer())
	}
	return out, it.Err()
}
