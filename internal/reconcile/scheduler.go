package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"student-billing/internal/domain/billing"
)

// CreateMonthlyChargesFor adds the monthly charge for date when it is the
// student's invoicing day, and invoices it. Repeated calls for the same date
// are no-ops. The charge and its invoice commit together: a gateway failure
// rolls the charge back so a retry on the same date recreates it. It returns
// the charge it created, if any.
func (e *Engine) CreateMonthlyChargesFor(ctx context.Context, studentID uint, date time.Time) (*billing.MonthlyCharge, error) {
	var (
		charge  *billing.MonthlyCharge
		invoice *billing.Invoice
	)
	summary, err := e.withStudent(ctx, studentID, func(s *Summary) error {
		if !s.Subscription.IsDue(date) {
			return nil
		}
		plan := e.catalog.Plan(s.Subscription.PlanCode)
		mc := &billing.MonthlyCharge{
			StudentID:     studentID,
			BillingPeriod: billing.BillingPeriod(date),
			CreatedAt:     e.now(),
			Price:         plan.MonthlyPrice,
		}
		created, err := s.tx.CreateMonthlyChargeIfAbsent(ctx, mc)
		if err != nil || !created {
			return err
		}
		charge = mc

		if err := s.Refresh(ctx, studentID); err != nil {
			return err
		}
		if err := s.SyncPaidStatus(ctx); err != nil {
			return err
		}
		invoice, err = s.InvoiceAllNotInvoicedYet(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if charge != nil {
		e.metrics.MonthlyChargesCreated.Inc()
	}
	if invoice != nil {
		e.notifyPaymentLink(ctx, summary, invoice)
	}
	return charge, nil
}

// notifyPaymentLink mails the checkout link of a new invoice once.
func (e *Engine) notifyPaymentLink(ctx context.Context, s *Summary, inv *billing.Invoice) {
	if e.mailer == nil || inv.NotifiedOn != nil {
		return
	}
	log := e.log.With(zap.Uint("student_id", s.Student.ID), zap.Uint("invoice_id", inv.ID))

	err := e.mailer.Send(ctx, s.Student.Email, TemplatePaymentLink, map[string]any{
		"full_name":     s.Student.FullName,
		"checkout_link": inv.URL,
	})
	if err != nil {
		log.Warn("payment link email failed", zap.Error(err))
		return
	}
	now := e.now()
	if err := e.store.MarkInvoiceNotified(ctx, inv.ID, now); err != nil {
		log.Warn("could not mark invoice notified", zap.Error(err))
		return
	}
	inv.NotifiedOn = &now
}

// Tick runs CreateMonthlyChargesFor over every student. A failing student
// does not stop the others; failures are combined into the returned error.
func (e *Engine) Tick(ctx context.Context, date time.Time) error {
	start := time.Now()
	defer func() {
		e.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	ids, err := e.store.ListStudentIDs(ctx)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		failed  []error
		charged int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			charge, err := e.CreateMonthlyChargesFor(gctx, id, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.log.Error("monthly charge failed", zap.Uint("student_id", id), zap.Error(err))
				failed = append(failed, err)
				return nil
			}
			if charge != nil {
				charged++
			}
			return nil
		})
	}
	_ = g.Wait()

	e.log.Info("billing tick done",
		zap.Time("date", date),
		zap.Int("students", len(ids)),
		zap.Int("charged", charged),
		zap.Int("failed", len(failed)))
	return errs.Combine(failed...)
}
