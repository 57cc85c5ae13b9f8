package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAndServes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.InvoicesCreated.WithLabelValues("btcpay").Inc()
	m.MonthlyChargesCreated.Add(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesCreated.WithLabelValues("btcpay")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MonthlyChargesCreated))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "billing_invoices_created_total"))
}

func TestNewPanicsOnDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
