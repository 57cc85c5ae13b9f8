package plans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code identifies a regional price table.
type Code string

const (
	Global Code = "global"
	Europe Code = "europe"
	Latam  Code = "latam"
	Guest  Code = "guest"
)

func (c Code) Valid() bool {
	switch c {
	case Global, Europe, Latam, Guest:
		return true
	}
	return false
}

// Plan is the immutable price set for one region.
type Plan struct {
	Code         Code            `json:"code"`
	SignupPrice  decimal.Decimal `json:"signup_price"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	DegreePrice  decimal.Decimal `json:"degree_price"`
}

// Catalog resolves plan codes and countries to plans. It is built once at
// startup and passed to every component that prices something.
type Catalog struct {
	plans   map[Code]Plan
	regions map[string]Code
}

func NewCatalog(plans []Plan, regions map[string]Code) *Catalog {
	c := &Catalog{
		plans:   make(map[Code]Plan, len(plans)),
		regions: make(map[string]Code, len(regions)),
	}
	for _, p := range plans {
		c.plans[p.Code] = p
	}
	for country, code := range regions {
		c.regions[strings.ToUpper(country)] = code
	}
	return c
}

// DefaultCatalog carries the production price table.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Plan{
		{Code: Global, SignupPrice: decimal.NewFromInt(200), MonthlyPrice: decimal.NewFromInt(60), DegreePrice: decimal.NewFromInt(500)},
		{Code: Europe, SignupPrice: decimal.NewFromInt(150), MonthlyPrice: decimal.NewFromInt(45), DegreePrice: decimal.NewFromInt(375)},
		{Code: Latam, SignupPrice: decimal.NewFromInt(100), MonthlyPrice: decimal.NewFromInt(30), DegreePrice: decimal.NewFromInt(250)},
		{Code: Guest, SignupPrice: decimal.Zero, MonthlyPrice: decimal.Zero, DegreePrice: decimal.Zero},
	}, DefaultRegions())
}

// Plan returns the plan for code, falling back to Global for unknown codes.
func (c *Catalog) Plan(code Code) Plan {
	if p, ok := c.plans[code]; ok {
		return p
	}
	return c.plans[Global]
}

// ForCountry resolves an ISO 3166 alpha-2 country code. Countries outside
// every region table are billed on the Global plan.
func (c *Catalog) ForCountry(country string) Plan {
	code, ok := c.regions[strings.ToUpper(strings.TrimSpace(country))]
	if !ok {
		code = Global
	}
	return c.Plan(code)
}

// Plans lists the sellable plans in a stable order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for _, code := range []Code{Global, Europe, Latam} {
		if p, ok := c.plans[code]; ok {
			out = append(out, p)
		}
	}
	return out
}
