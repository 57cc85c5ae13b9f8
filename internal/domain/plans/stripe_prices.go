package plans

// Kind is the kind of charge a Stripe price is sold for.
type Kind string

const (
	KindSignup  Kind = "signup"
	KindMonthly Kind = "monthly"
	KindDegree  Kind = "degree"
)

type PriceIDs struct {
	Signup  string
	Monthly string
	Degree  string
}

func (p PriceIDs) For(kind Kind) string {
	switch kind {
	case KindSignup:
		return p.Signup
	case KindMonthly:
		return p.Monthly
	case KindDegree:
		return p.Degree
	}
	return ""
}

// StripePrices holds the configured Stripe price ids per region.
type StripePrices struct {
	Global PriceIDs
	Europe PriceIDs
	Latam  PriceIDs
}

// ByPlanCode returns the price ids a student on code is checked out with.
// Guest accounts never reach checkout but resolve to Global for completeness.
func (s StripePrices) ByPlanCode(code Code) PriceIDs {
	switch code {
	case Europe:
		return s.Europe
	case Latam:
		return s.Latam
	default:
		return s.Global
	}
}

// All lists every configured price id, for startup validation.
func (s StripePrices) All() []string {
	var ids []string
	for _, p := range []PriceIDs{s.Global, s.Europe, s.Latam} {
		ids = append(ids, p.Signup, p.Monthly, p.Degree)
	}
	return ids
}
