package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"student-billing/internal/domain/plans"
)

type ChargeKind string

const (
	SubscriptionCharge ChargeKind = "subscription"
	DegreeCharge       ChargeKind = "degree"
	MonthlyChargeKind  ChargeKind = "monthly"
)

// Charge is one debt item: exactly one of the pointers is set, matching Kind.
type Charge struct {
	Kind         ChargeKind
	Subscription *Subscription
	Degree       *Degree
	Monthly      *MonthlyCharge
}

func ChargeFromSubscription(s *Subscription) Charge {
	return Charge{Kind: SubscriptionCharge, Subscription: s}
}

func ChargeFromDegree(d *Degree) Charge {
	return Charge{Kind: DegreeCharge, Degree: d}
}

func ChargeFromMonthly(m *MonthlyCharge) Charge {
	return Charge{Kind: MonthlyChargeKind, Monthly: m}
}

func (c Charge) ID() uint {
	switch c.Kind {
	case SubscriptionCharge:
		return c.Subscription.ID
	case DegreeCharge:
		return c.Degree.ID
	case MonthlyChargeKind:
		return c.Monthly.ID
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

func (c Charge) Description() string {
	switch c.Kind {
	case SubscriptionCharge:
		return "Inscripción"
	case DegreeCharge:
		return "Titulación"
	case MonthlyChargeKind:
		return "Cargo mensual"
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

func (c Charge) CreatedAt() time.Time {
	switch c.Kind {
	case SubscriptionCharge:
		return c.Subscription.CreatedAt
	case DegreeCharge:
		return c.Degree.CreatedAt
	case MonthlyChargeKind:
		return c.Monthly.CreatedAt
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

// Amount is never negative.
func (c Charge) Amount() decimal.Decimal {
	switch c.Kind {
	case SubscriptionCharge:
		return c.Subscription.Price
	case DegreeCharge:
		return c.Degree.Price
	case MonthlyChargeKind:
		return c.Monthly.Price
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

func (c Charge) PaidAt() *time.Time {
	switch c.Kind {
	case SubscriptionCharge:
		return c.Subscription.PaidAt
	case DegreeCharge:
		return c.Degree.PaidAt
	case MonthlyChargeKind:
		return c.Monthly.PaidAt
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

func (c Charge) Paid() bool {
	return c.PaidAt() != nil
}

// PriceKind selects which gateway price this charge is sold as.
func (c Charge) PriceKind() plans.Kind {
	switch c.Kind {
	case SubscriptionCharge:
		return plans.KindSignup
	case DegreeCharge:
		return plans.KindDegree
	case MonthlyChargeKind:
		return plans.KindMonthly
	}
	panic("billing: unknown charge kind " + string(c.Kind))
}

// PriceRef resolves the gateway price id from the student's regional prices.
func (c Charge) PriceRef(prices plans.PriceIDs) string {
	return prices.For(c.PriceKind())
}

// SetPaid updates the in-memory row after storage accepted the change.
func (c Charge) SetPaid(at time.Time) {
	switch c.Kind {
	case SubscriptionCharge:
		c.Subscription.Paid, c.Subscription.PaidAt = true, &at
	case DegreeCharge:
		c.Degree.Paid, c.Degree.PaidAt = true, &at
	case MonthlyChargeKind:
		c.Monthly.Paid, c.Monthly.PaidAt = true, &at
	default:
		panic("billing: unknown charge kind " + string(c.Kind))
	}
}

func (c Charge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind        ChargeKind      `json:"kind"`
		CreatedAt   time.Time       `json:"created_at"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		PaidAt      *time.Time      `json:"paid_at"`
	}{c.Kind, c.CreatedAt(), c.Description(), c.Amount(), c.PaidAt()})
}
