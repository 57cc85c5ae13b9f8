package reconcile

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
)

// Summary is a student's billing state, rebuilt from storage on every
// operation. It is bound to the transaction it was loaded in.
type Summary struct {
	Student      *students.Student     `json:"-"`
	Subscription *billing.Subscription `json:"subscription"`

	History       []billing.HistoryItem `json:"history"`
	UnpaidCharges []billing.Charge      `json:"unpaid_charges"`
	Invoices      []billing.Invoice     `json:"invoices"`

	// TotalChargesNotInvoicedYet is nil when every debt is already covered
	// by an outstanding invoice.
	TotalChargesNotInvoicedYet *decimal.Decimal `json:"total_charges_not_invoiced_yet"`
	// Balance is payments minus charges. Negative means the student owes.
	Balance decimal.Decimal `json:"balance"`

	degrees  []billing.Degree
	monthly  []billing.MonthlyCharge
	payments []billing.Payment

	tx     Store
	engine *Engine
}

func (e *Engine) loadSummary(ctx context.Context, tx Store, studentID uint) (*Summary, error) {
	s := &Summary{tx: tx, engine: e}
	if err := s.Refresh(ctx, studentID); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads every record. Queued side effects are kept.
func (s *Summary) Refresh(ctx context.Context, studentID uint) error {
	student, err := s.tx.FindStudent(ctx, studentID)
	if err != nil {
		return err
	}
	sub, err := s.tx.ActiveSubscription(ctx, studentID)
	if err != nil {
		return err
	}
	degrees, err := s.tx.ListDegrees(ctx, studentID)
	if err != nil {
		return err
	}
	monthly, err := s.tx.ListMonthlyCharges(ctx, studentID)
	if err != nil {
		return err
	}
	payments, err := s.tx.ListPayments(ctx, studentID)
	if err != nil {
		return err
	}
	invoices, err := s.tx.OutstandingInvoices(ctx, studentID)
	if err != nil {
		return err
	}

	s.Student, s.Subscription = student, sub
	s.degrees, s.monthly, s.payments, s.Invoices = degrees, monthly, payments, invoices
	s.History = s.History[:0]
	s.UnpaidCharges = s.UnpaidCharges[:0]

	// Load order is also reconciliation priority.
	for _, c := range s.charges() {
		s.History = append(s.History, billing.ChargeHistory(c))
		if !c.Paid() {
			s.UnpaidCharges = append(s.UnpaidCharges, c)
		}
	}
	for i := range s.payments {
		s.History = append(s.History, billing.PaymentHistory(&s.payments[i]))
	}

	s.Balance = decimal.Zero
	for _, h := range s.History {
		s.Balance = s.Balance.Add(h.Amount)
	}
	sort.SliceStable(s.History, func(i, j int) bool {
		return s.History[i].Date.Before(s.History[j].Date)
	})

	invoiced := decimal.Zero
	for _, inv := range s.Invoices {
		invoiced = invoiced.Add(inv.Amount)
	}
	s.TotalChargesNotInvoicedYet = nil
	if invoiceable := s.Balance.Neg().Sub(invoiced); invoiceable.IsPositive() {
		s.TotalChargesNotInvoicedYet = &invoiceable
	}
	return nil
}

// charges lists every charge: the subscription, then degrees, then monthly
// charges, each in load order.
func (s *Summary) charges() []billing.Charge {
	out := make([]billing.Charge, 0, 1+len(s.degrees)+len(s.monthly))
	out = append(out, billing.ChargeFromSubscription(s.Subscription))
	for i := range s.degrees {
		out = append(out, billing.ChargeFromDegree(&s.degrees[i]))
	}
	for i := range s.monthly {
		out = append(out, billing.ChargeFromMonthly(&s.monthly[i]))
	}
	return out
}

func (s *Summary) Payments() []billing.Payment {
	return s.payments
}

// OnboardingPending reports whether the signup charge is paid but some
// onboarding step has not completed yet.
func (s *Summary) OnboardingPending() bool {
	return s.Subscription != nil && s.Subscription.Paid && !s.Student.Onboarded()
}

// InvoiceAllNotInvoicedYet requests payment for debt no outstanding invoice
// covers. Outstanding invoices are superseded so the student is left with a
// single open invoice for the whole debt. Guest students are never invoiced.
// It returns nil when there is nothing to invoice.
func (s *Summary) InvoiceAllNotInvoicedYet(ctx context.Context) (*billing.Invoice, error) {
	if s.Subscription.PlanCode == plans.Guest {
		return nil, nil
	}
	if s.TotalChargesNotInvoicedYet == nil {
		return nil, nil
	}
	if len(s.Invoices) > 0 {
		return s.requestInvoice(ctx, s.Balance.Neg(), true)
	}
	return s.requestInvoice(ctx, *s.TotalChargesNotInvoicedYet, false)
}

// InvoiceEverything replaces every outstanding invoice with one for the
// full debt.
func (s *Summary) InvoiceEverything(ctx context.Context) (*billing.Invoice, error) {
	if !s.Balance.IsNegative() || s.Subscription.PlanCode == plans.Guest {
		if err := s.expireInvoices(ctx); err != nil {
			return nil, err
		}
		s.TotalChargesNotInvoicedYet = nil
		return nil, nil
	}
	return s.requestInvoice(ctx, s.Balance.Neg(), true)
}

func (s *Summary) expireInvoices(ctx context.Context) error {
	if len(s.Invoices) == 0 {
		return nil
	}
	if err := s.tx.ExpireInvoices(ctx, s.Student.ID); err != nil {
		return err
	}
	s.Invoices = nil
	return nil
}

// requestInvoice opens a checkout for amount and records it. With supersede,
// outstanding invoices are expired once the gateway has accepted the new one,
// so a gateway failure leaves them untouched.
func (s *Summary) requestInvoice(ctx context.Context, amount decimal.Decimal, supersede bool) (*billing.Invoice, error) {
	e := s.engine
	method := s.Student.PaymentMethod
	gw, ok := e.gateways[method]
	if !ok {
		return nil, billing.Invalid("payment_method", "no gateway for "+string(method))
	}

	checkout, err := gw.RequestInvoice(ctx, billing.InvoiceRequest{
		Student:     s.Student,
		PlanCode:    s.Subscription.PlanCode,
		Charges:     s.UnpaidCharges,
		Amount:      amount,
		Description: billing.InvoiceDescription,
	})
	if err != nil {
		if !billing.GatewayError.Has(err) {
			err = billing.GatewayError.Wrap(err)
		}
		return nil, err
	}

	if checkout.CustomerID != "" && s.Student.StripeCustomerID == nil {
		if err := s.tx.SetStripeCustomerID(ctx, s.Student.ID, checkout.CustomerID); err != nil {
			return nil, err
		}
		s.Student.StripeCustomerID = &checkout.CustomerID
	}
	if supersede {
		if err := s.expireInvoices(ctx); err != nil {
			return nil, err
		}
	}

	inv := &billing.Invoice{
		StudentID:     s.Student.ID,
		CreatedAt:     e.now(),
		PaymentMethod: method,
		ExternalID:    checkout.ExternalID,
		Amount:        amount,
		Description:   billing.InvoiceDescription,
		URL:           checkout.URL,
	}
	if err := s.tx.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	s.Invoices = append(s.Invoices, *inv)
	s.TotalChargesNotInvoicedYet = nil

	e.metrics.InvoicesCreated.WithLabelValues(string(method)).Inc()
	e.log.Info("invoice created",
		zap.Uint("student_id", s.Student.ID),
		zap.Uint("invoice_id", inv.ID),
		zap.String("payment_method", string(method)),
		zap.String("amount", amount.String()))
	return inv, nil
}

// recordPayment persists p and, when it settles an invoice, links the two.
// A replayed settlement yields errAlreadySettled so the caller rolls back.
func (s *Summary) recordPayment(ctx context.Context, p *billing.Payment) error {
	created, err := s.tx.CreatePayment(ctx, p)
	if err != nil {
		return err
	}
	if !created {
		return errAlreadySettled
	}
	if p.InvoiceID != nil {
		linked, err := s.tx.MarkInvoicePaid(ctx, *p.InvoiceID, p.ID)
		if err != nil {
			return err
		}
		if !linked {
			return errAlreadySettled
		}
	}

	e := s.engine
	e.metrics.PaymentsRecorded.WithLabelValues(string(p.PaymentMethod), boolLabel(p.InvoiceID != nil)).Inc()
	fields := []zap.Field{
		zap.Uint("student_id", p.StudentID),
		zap.Uint("payment_id", p.ID),
		zap.String("amount", p.Amount.String()),
	}
	if p.InvoiceID != nil {
		fields = append(fields, zap.Uint("invoice_id", *p.InvoiceID))
	}
	e.log.Info("payment recorded", fields...)

	return s.Refresh(ctx, p.StudentID)
}

// SyncPaidStatus retires unpaid charges front to back while the balance
// covers everything retired so far. It stops at the first charge it cannot
// cover and never retires part of a charge.
func (s *Summary) SyncPaidStatus(ctx context.Context) error {
	if len(s.UnpaidCharges) == 0 {
		return nil
	}

	e := s.engine
	unsynced := decimal.Zero
	for _, c := range s.UnpaidCharges {
		unsynced = unsynced.Add(c.Amount())
	}

	var still []billing.Charge
	for i, c := range s.UnpaidCharges {
		remaining := unsynced.Sub(c.Amount())
		if remaining.Neg().GreaterThan(s.Balance) {
			still = append(still, s.UnpaidCharges[i:]...)
			break
		}

		at := e.now()
		changed, err := s.tx.MarkChargePaid(ctx, c, at)
		if err != nil {
			return err
		}
		unsynced = remaining
		if !changed {
			continue
		}
		c.SetPaid(at)

		e.metrics.ChargesRetired.WithLabelValues(string(c.Kind)).Inc()
		e.log.Info("charge paid",
			zap.Uint("student_id", s.Student.ID),
			zap.String("kind", string(c.Kind)),
			zap.Uint("charge_id", c.ID()))
	}
	s.UnpaidCharges = still
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
