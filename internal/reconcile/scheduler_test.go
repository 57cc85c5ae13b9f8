package reconcile_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
	"student-billing/internal/reconcile"
)

func TestMonthlyChargeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	res := f.signup("ada@example.com", "AR", students.BtcPay)
	id := res.Student.ID

	charge, err := f.engine.CreateMonthlyChargesFor(f.ctx, id, day(2024, 2, 15))
	require.NoError(t, err)
	require.NotNil(t, charge)
	assert.True(t, dec(30).Equal(charge.Price))
	assert.Equal(t, billing.BillingPeriod(day(2024, 2, 15)), charge.BillingPeriod)

	again, err := f.engine.CreateMonthlyChargesFor(f.ctx, id, day(2024, 2, 15))
	require.NoError(t, err)
	assert.Nil(t, again)

	notDue, err := f.engine.CreateMonthlyChargesFor(f.ctx, id, day(2024, 2, 16))
	require.NoError(t, err)
	assert.Nil(t, notDue)

	s := f.summary(id)
	assert.Len(t, s.UnpaidCharges, 2)
	assert.True(t, dec(-130).Equal(s.Balance))
	require.Len(t, s.Invoices, 1)
	assert.NotNil(t, s.Invoices[0].NotifiedOn)

	links := f.mail.byTemplate(reconcile.TemplatePaymentLink)
	require.Len(t, links, 1)
	assert.Equal(t, s.Invoices[0].URL, links[0].data["checkout_link"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MonthlyChargesCreated))
}

func TestMonthlyChargeClampsToMonthEnd(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC))
	res := f.signup("ada@example.com", "AR", students.BtcPay)

	for _, d := range []time.Time{day(2024, 2, 28), day(2024, 3, 30)} {
		charge, err := f.engine.CreateMonthlyChargesFor(f.ctx, res.Student.ID, d)
		require.NoError(t, err)
		assert.Nil(t, charge, d)
	}
	for _, d := range []time.Time{day(2024, 2, 29), day(2024, 3, 31), day(2024, 4, 30)} {
		charge, err := f.engine.CreateMonthlyChargesFor(f.ctx, res.Student.ID, d)
		require.NoError(t, err)
		assert.NotNil(t, charge, d)
	}
	assert.Len(t, f.summary(res.Student.ID).UnpaidCharges, 4)
}

func TestTickEndToEnd(t *testing.T) {
	f := newFixture(t)
	ada := f.signup("ada@example.com", "AR", students.BtcPay).Student.ID

	f.clock.Set(time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
	grace := f.signup("grace@example.com", "MX", students.BtcPay).Student.ID

	// Signup fees, invoices btcpay-1 and btcpay-2.
	f.settleBTCPay("btcpay-1")

	f.clock.Set(time.Date(2024, 2, 15, 6, 0, 0, 0, time.UTC))
	require.NoError(t, f.engine.Tick(f.ctx, day(2024, 2, 15)))
	s := f.summary(ada)
	require.Len(t, s.Invoices, 1)
	assert.True(t, dec(30).Equal(s.Invoices[0].Amount))
	f.settleBTCPay(s.Invoices[0].ExternalID)

	// Repeated tick on the same day changes nothing.
	require.NoError(t, f.engine.Tick(f.ctx, day(2024, 2, 15)))
	f.clock.Set(time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC))
	require.NoError(t, f.engine.Tick(f.ctx, day(2024, 3, 15)))

	s = f.summary(ada)
	require.Len(t, s.UnpaidCharges, 1)
	assert.Equal(t, billing.MonthlyChargeKind, s.UnpaidCharges[0].Kind)
	assert.True(t, dec(-30).Equal(s.Balance), s.Balance.String())
	require.Len(t, s.Invoices, 1)
	assert.True(t, dec(30).Equal(s.Invoices[0].Amount))

	// History is date ordered: charges negative, payments positive.
	require.Len(t, s.History, 5)
	for i := 1; i < len(s.History); i++ {
		assert.False(t, s.History[i].Date.Before(s.History[i-1].Date))
	}

	// Grace bills on the 20th.
	g := f.summary(grace)
	assert.Len(t, g.UnpaidCharges, 1)
	assert.True(t, dec(-100).Equal(g.Balance))
}

func TestGatewayFailureRollsBackMonthlyCharge(t *testing.T) {
	f := newFixture(t)
	ada := f.signup("ada@example.com", "AR", students.BtcPay).Student.ID
	f.settleBTCPay("btcpay-1")

	f.btcpay.err = billing.GatewayError.New("btcpay down")
	charge, err := f.engine.CreateMonthlyChargesFor(f.ctx, ada, day(2024, 2, 15))
	require.Error(t, err)
	assert.True(t, billing.GatewayError.Has(err))
	assert.Nil(t, charge)
	require.Error(t, f.engine.Tick(f.ctx, day(2024, 2, 15)))

	s := f.summary(ada)
	assert.Empty(t, s.UnpaidCharges)
	assert.Empty(t, s.Invoices)
	assert.Nil(t, s.TotalChargesNotInvoicedYet)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.MonthlyChargesCreated))

	// Same day, gateway back up.
	f.btcpay.err = nil
	require.NoError(t, f.engine.Tick(f.ctx, day(2024, 2, 15)))

	s = f.summary(ada)
	require.Len(t, s.UnpaidCharges, 1)
	assert.Equal(t, billing.MonthlyChargeKind, s.UnpaidCharges[0].Kind)
	require.Len(t, s.Invoices, 1)
	assert.True(t, dec(30).Equal(s.Invoices[0].Amount))
	assert.Nil(t, s.TotalChargesNotInvoicedYet)

	links := f.mail.byTemplate(reconcile.TemplatePaymentLink)
	require.Len(t, links, 1)
	assert.Equal(t, s.Invoices[0].URL, links[0].data["checkout_link"])
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.MonthlyChargesCreated))
}

func TestTickContinuesPastFailures(t *testing.T) {
	fail := map[uint]bool{}
	f := newFixture(t, func(cfg *reconcile.Config) {
		cfg.Locker = flakyLocker{Locker: cfg.Locker, fail: fail}
	})
	ada := f.signup("ada@example.com", "AR", students.BtcPay).Student.ID
	grace := f.signup("grace@example.com", "US", students.Stripe).Student.ID

	fail[ada] = true
	err := f.engine.Tick(f.ctx, day(2024, 2, 15))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")

	s := f.summary(grace)
	assert.Len(t, s.UnpaidCharges, 2)
	require.Len(t, s.Invoices, 1)
	assert.True(t, dec(230).Equal(s.Invoices[0].Amount))

	delete(fail, ada)
	require.NoError(t, f.engine.Tick(f.ctx, day(2024, 2, 15)))
	assert.Len(t, f.summary(ada).UnpaidCharges, 2)
	assert.Len(t, f.summary(grace).UnpaidCharges, 2)
}
