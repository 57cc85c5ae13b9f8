package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
	"student-billing/internal/metrics"
)

// Outcome is what an inbound payment event amounted to.
type Outcome string

const (
	Applied   Outcome = "applied"
	Ignored   Outcome = "ignored"
	Duplicate Outcome = "duplicate"
)

var errAlreadySettled = errors.New("already settled")

type Config struct {
	Store      Store
	Catalog    *plans.Catalog
	Gateways   []billing.Gateway
	Locker     Locker
	Onboarding *Onboarding
	Mailer     Mailer
	Words      Passphrases
	Metrics    *metrics.Billing
	Log        *zap.Logger

	// Domain is the public base URL used in student links.
	Domain string
	// Workers bounds the scheduler fan-out.
	Workers int
	Now     func() time.Time
}

// Engine is the only writer of charges, payments and invoices. Every entry
// point locks one student, loads a Summary in a transaction and acts on it.
type Engine struct {
	store      Store
	catalog    *plans.Catalog
	gateways   map[students.PaymentMethod]billing.Gateway
	locker     Locker
	onboarding *Onboarding
	mailer     Mailer
	words      Passphrases
	metrics    *metrics.Billing
	log        *zap.Logger
	domain     string
	workers    int
	now        func() time.Time
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{
		store:      cfg.Store,
		catalog:    cfg.Catalog,
		gateways:   make(map[students.PaymentMethod]billing.Gateway, len(cfg.Gateways)),
		locker:     cfg.Locker,
		onboarding: cfg.Onboarding,
		mailer:     cfg.Mailer,
		words:      cfg.Words,
		metrics:    cfg.Metrics,
		log:        cfg.Log,
		domain:     cfg.Domain,
		workers:    cfg.Workers,
		now:        cfg.Now,
	}
	for _, gw := range cfg.Gateways {
		e.gateways[gw.Method()] = gw
	}
	if e.catalog == nil {
		e.catalog = plans.DefaultCatalog()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	return e
}

// withStudent runs fn on a fresh Summary under the student's lock and in
// one transaction. Once the signup charge is paid, any unfinished onboarding
// runs after commit, so a failed step is retried by the next call.
func (e *Engine) withStudent(ctx context.Context, studentID uint, fn func(s *Summary) error) (*Summary, error) {
	unlock, err := e.locker.Lock(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var summary *Summary
	err = e.store.Transaction(ctx, func(tx Store) error {
		s, err := e.loadSummary(ctx, tx, studentID)
		if err != nil {
			return err
		}
		summary = s
		return fn(s)
	})
	if err != nil {
		return nil, err
	}

	if summary.OnboardingPending() && e.onboarding != nil {
		if err := e.onboarding.Run(ctx, studentID); err != nil {
			e.log.Error("onboarding failed", zap.Uint("student_id", studentID), zap.Error(err))
		}
	}
	return summary, nil
}

// Summary loads a read-only view of the student's billing state.
func (e *Engine) Summary(ctx context.Context, studentID uint) (*Summary, error) {
	var summary *Summary
	err := e.store.Transaction(ctx, func(tx Store) error {
		s, err := e.loadSummary(ctx, tx, studentID)
		summary = s
		return err
	})
	return summary, err
}

// InvoiceEverything supersedes any outstanding invoice with one covering the
// whole debt.
func (e *Engine) InvoiceEverything(ctx context.Context, studentID uint) (*billing.Invoice, error) {
	var inv *billing.Invoice
	_, err := e.withStudent(ctx, studentID, func(s *Summary) (err error) {
		inv, err = s.InvoiceEverything(ctx)
		return err
	})
	return inv, err
}

// InvoiceAllNotInvoicedYet requests payment for debt not yet invoiced.
func (e *Engine) InvoiceAllNotInvoicedYet(ctx context.Context, studentID uint) (*billing.Invoice, error) {
	var inv *billing.Invoice
	_, err := e.withStudent(ctx, studentID, func(s *Summary) (err error) {
		inv, err = s.InvoiceAllNotInvoicedYet(ctx)
		return err
	})
	return inv, err
}

func (e *Engine) SetPaymentMethod(ctx context.Context, studentID uint, method students.PaymentMethod) error {
	if _, ok := e.gateways[method]; !ok {
		return billing.Invalid("payment_method", "unsupported payment method")
	}
	_, err := e.withStudent(ctx, studentID, func(s *Summary) error {
		if err := s.tx.SetPaymentMethod(ctx, studentID, method); err != nil {
			return err
		}
		s.Student.PaymentMethod = method
		return nil
	})
	return err
}

// AwardDegree adds a degree charge at the student's plan price and invoices it.
func (e *Engine) AwardDegree(ctx context.Context, studentID uint, description string) (*billing.Degree, error) {
	var degree *billing.Degree
	_, err := e.withStudent(ctx, studentID, func(s *Summary) error {
		plan := e.catalog.Plan(s.Subscription.PlanCode)
		degree = &billing.Degree{
			StudentID:   studentID,
			CreatedAt:   e.now(),
			Description: description,
			Price:       plan.DegreePrice,
		}
		if err := s.tx.CreateDegree(ctx, degree); err != nil {
			return err
		}
		if err := s.Refresh(ctx, studentID); err != nil {
			return err
		}
		if err := s.SyncPaidStatus(ctx); err != nil {
			return err
		}
		_, err := s.InvoiceAllNotInvoicedYet(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return degree, nil
}

// HandleInvoiceSettled applies a gateway's report that one of our invoices
// was paid. Unknown invoices and replays are not errors.
func (e *Engine) HandleInvoiceSettled(ctx context.Context, ev billing.InvoiceSettled) (Outcome, error) {
	inv, err := e.store.FindInvoiceByExternalID(ctx, ev.Method, ev.ExternalID)
	if billing.NotFoundError.Has(err) {
		e.webhookOutcome(ev.Method, Ignored)
		return Ignored, nil
	}
	if err != nil {
		return "", err
	}

	outcome, err := e.settle(ctx, inv.ID, &billing.Payment{
		StudentID:     inv.StudentID,
		Amount:        inv.Amount,
		PaymentMethod: ev.Method,
		ClearingData:  ev.ClearingData,
		ExternalRef:   externalRef(ev.Method, ev.ExternalID),
	})
	if err != nil {
		return "", err
	}
	e.webhookOutcome(ev.Method, outcome)
	return outcome, nil
}

// HandleCustomerPaid records money from a gateway customer, linked to the
// outstanding invoice of the same amount when there is one.
func (e *Engine) HandleCustomerPaid(ctx context.Context, ev billing.CustomerPaid) (Outcome, error) {
	student, err := e.store.FindStudentByStripeCustomer(ctx, ev.CustomerID)
	if billing.NotFoundError.Has(err) {
		e.log.Info("payment from unknown customer ignored", zap.String("customer_id", ev.CustomerID))
		e.webhookOutcome(ev.Method, Ignored)
		return Ignored, nil
	}
	if err != nil {
		return "", err
	}

	outcome := Applied
	_, err = e.withStudent(ctx, student.ID, func(s *Summary) error {
		p := &billing.Payment{
			StudentID:     student.ID,
			CreatedAt:     e.now(),
			Amount:        ev.Amount,
			Fees:          ev.Fees,
			PaymentMethod: ev.Method,
			ClearingData:  ev.ClearingData,
		}
		if ev.ExternalRef != "" {
			p.ExternalRef = externalRef(ev.Method, ev.ExternalRef)
		}
		for _, inv := range s.Invoices {
			if inv.PaymentMethod == ev.Method && inv.Amount.Equal(ev.Amount) {
				id := inv.ID
				p.InvoiceID = &id
				break
			}
		}
		if err := s.recordPayment(ctx, p); err != nil {
			return err
		}
		return s.SyncPaidStatus(ctx)
	})
	if errors.Is(err, errAlreadySettled) {
		outcome, err = Duplicate, nil
	}
	if err != nil {
		return "", err
	}
	e.webhookOutcome(ev.Method, outcome)
	return outcome, nil
}

// SettleInvoice records a manual payment for the full invoice amount.
// Unknown invoices are an error; already paid ones are a no-op.
func (e *Engine) SettleInvoice(ctx context.Context, invoiceID uint) (Outcome, error) {
	inv, err := e.store.FindInvoice(ctx, invoiceID)
	if err != nil {
		return "", err
	}
	return e.settle(ctx, inv.ID, &billing.Payment{
		StudentID:     inv.StudentID,
		Amount:        inv.Amount,
		PaymentMethod: inv.PaymentMethod,
		ClearingData:  []byte(`{"source":"admin"}`),
	})
}

func (e *Engine) settle(ctx context.Context, invoiceID uint, p *billing.Payment) (Outcome, error) {
	_, err := e.withStudent(ctx, p.StudentID, func(s *Summary) error {
		inv, err := s.tx.FindInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.PaymentID != nil {
			return errAlreadySettled
		}
		p.InvoiceID = &inv.ID
		p.CreatedAt = e.now()
		if err := s.recordPayment(ctx, p); err != nil {
			return err
		}
		return s.SyncPaidStatus(ctx)
	})
	if errors.Is(err, errAlreadySettled) {
		e.log.Info("invoice already settled", zap.Uint("invoice_id", invoiceID))
		return Duplicate, nil
	}
	if err != nil {
		return "", err
	}
	return Applied, nil
}

func (e *Engine) webhookOutcome(method students.PaymentMethod, outcome Outcome) {
	e.metrics.Webhooks.WithLabelValues(string(method), string(outcome)).Inc()
}

func externalRef(method students.PaymentMethod, id string) *string {
	ref := string(method) + ":" + id
	return &ref
}
