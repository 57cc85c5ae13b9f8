package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Billing holds the reconciliation engine's Prometheus metrics.
type Billing struct {
	InvoicesCreated       *prometheus.CounterVec
	PaymentsRecorded      *prometheus.CounterVec
	ChargesRetired        *prometheus.CounterVec
	Webhooks              *prometheus.CounterVec
	MonthlyChargesCreated prometheus.Counter
	TickDuration          prometheus.Histogram
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Billing {
	m := &Billing{
		InvoicesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_invoices_created_total",
				Help: "Invoices opened at a payment gateway",
			},
			[]string{"payment_method"},
		),
		PaymentsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_payments_recorded_total",
				Help: "Payments recorded, by whether they settled an invoice",
			},
			[]string{"payment_method", "linked"},
		),
		ChargesRetired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_charges_retired_total",
				Help: "Charges marked paid by reconciliation",
			},
			[]string{"kind"},
		),
		Webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "billing_webhooks_total",
				Help: "Inbound payment events by outcome",
			},
			[]string{"gateway", "outcome"},
		),
		MonthlyChargesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "billing_monthly_charges_created_total",
				Help: "Monthly charges created by the scheduler",
			},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "billing_tick_duration_seconds",
				Help:    "Duration of a full scheduler tick",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
	}

	reg.MustRegister(
		m.InvoicesCreated,
		m.PaymentsRecorded,
		m.ChargesRetired,
		m.Webhooks,
		m.MonthlyChargesCreated,
		m.TickDuration,
	)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
