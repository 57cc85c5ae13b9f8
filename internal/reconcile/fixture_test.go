package reconcile_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
	"student-billing/internal/infra/lock"
	"student-billing/internal/metrics"
	"student-billing/internal/reconcile"
	"student-billing/internal/store/storetest"
)

type spyGateway struct {
	mu       sync.Mutex
	method   students.PaymentMethod
	requests []billing.InvoiceRequest
	err      error
}

func (g *spyGateway) Method() students.PaymentMethod { return g.method }

func (g *spyGateway) RequestInvoice(_ context.Context, req billing.InvoiceRequest) (billing.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return billing.Checkout{}, g.err
	}
	g.requests = append(g.requests, req)
	n := len(g.requests)
	out := billing.Checkout{
		URL:        fmt.Sprintf("https://pay.example/%s/%d", g.method, n),
		ExternalID: fmt.Sprintf("%s-%d", g.method, n),
	}
	if g.method == students.Stripe && req.Student.StripeCustomerID == nil {
		out.CustomerID = fmt.Sprintf("cus_%d", req.Student.ID)
	}
	return out, nil
}

func (g *spyGateway) calls() []billing.InvoiceRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]billing.InvoiceRequest(nil), g.requests...)
}

type sentMail struct {
	to       string
	template string
	data     map[string]any
}

// spyMailer records sent mail. The next failNext sends fail.
type spyMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	failNext int
}

func (m *spyMailer) Send(_ context.Context, to, template string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("smtp: connection refused")
	}
	m.sent = append(m.sent, sentMail{to: to, template: template, data: data})
	return nil
}

func (m *spyMailer) byTemplate(template string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.template == template {
			out = append(out, s)
		}
	}
	return out
}

// spyLMS creates numbered users. The next failNext calls fail.
type spyLMS struct {
	mu       sync.Mutex
	users    []string
	failNext int
}

func (l *spyLMS) CreateStudentUser(_ context.Context, username, email, password string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failNext > 0 {
		l.failNext--
		return "", fmt.Errorf("lms: 503 service unavailable")
	}
	l.users = append(l.users, email)
	return fmt.Sprintf("wp-%d", len(l.users)), nil
}

func (l *spyLMS) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

type spyCommunity struct{}

func (spyCommunity) VerificationLink(state string) string {
	return "https://chat.example/authorize?state=" + state
}

func (spyCommunity) Join(_ context.Context, accessToken string) (reconcile.CommunityMember, error) {
	if accessToken != "good-token" {
		return reconcile.CommunityMember{}, fmt.Errorf("bad token")
	}
	return reconcile.CommunityMember{UserID: "555", Handle: "ada#1815"}, nil
}

// words hands out unique predictable passphrases.
type words struct {
	mu sync.Mutex
	n  int
}

func (w *words) Generate() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
	return fmt.Sprintf("apple+pear+%d", w.n), nil
}

// countingStore counts MarkChargePaid calls, including those made inside
// transactions.
type countingStore struct {
	reconcile.Store
	mu    *sync.Mutex
	marks *int
}

func (c countingStore) Transaction(ctx context.Context, fn func(tx reconcile.Store) error) error {
	return c.Store.Transaction(ctx, func(tx reconcile.Store) error {
		return fn(countingStore{Store: tx, mu: c.mu, marks: c.marks})
	})
}

func (c countingStore) MarkChargePaid(ctx context.Context, ch billing.Charge, at time.Time) (bool, error) {
	c.mu.Lock()
	*c.marks++
	c.mu.Unlock()
	return c.Store.MarkChargePaid(ctx, ch, at)
}

// flakyLocker refuses to lock the students in fail.
type flakyLocker struct {
	reconcile.Locker
	fail map[uint]bool
}

func (l flakyLocker) Lock(ctx context.Context, studentID uint) (func(), error) {
	if l.fail[studentID] {
		return nil, fmt.Errorf("lock %d: unavailable", studentID)
	}
	return l.Locker.Lock(ctx, studentID)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  reconcile.Store
	engine *reconcile.Engine
	stripe *spyGateway
	btcpay *spyGateway
	mail   *spyMailer
	lms    *spyLMS
	clock  *clock

	metrics *metrics.Billing

	marksMu sync.Mutex
	marks   int
}

// testCatalog prices Global like the reconciliation examples: 200 signup,
// 30 a month.
func testCatalog() *plans.Catalog {
	return plans.NewCatalog([]plans.Plan{
		{Code: plans.Global, SignupPrice: decimal.NewFromInt(200), MonthlyPrice: decimal.NewFromInt(30), DegreePrice: decimal.NewFromInt(500)},
		{Code: plans.Latam, SignupPrice: decimal.NewFromInt(100), MonthlyPrice: decimal.NewFromInt(30), DegreePrice: decimal.NewFromInt(250)},
		{Code: plans.Guest, SignupPrice: decimal.Zero, MonthlyPrice: decimal.Zero, DegreePrice: decimal.Zero},
	}, plans.DefaultRegions())
}

func newFixture(t *testing.T, opts ...func(*reconcile.Config)) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		stripe: &spyGateway{method: students.Stripe},
		btcpay: &spyGateway{method: students.BtcPay},
		mail:   &spyMailer{},
		lms:    &spyLMS{},
		clock:  &clock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
	}
	base := storetest.New(t)
	f.store = countingStore{Store: base, mu: &f.marksMu, marks: &f.marks}
	f.metrics = metrics.New(prometheus.NewRegistry())

	log := zaptest.NewLogger(t)
	wordsGen := &words{}
	cfg := reconcile.Config{
		Store:      f.store,
		Catalog:    testCatalog(),
		Gateways:   []billing.Gateway{f.stripe, f.btcpay},
		Locker:     lock.NewLocal(),
		Onboarding: reconcile.NewOnboarding(f.store, f.lms, spyCommunity{}, f.mail, wordsGen, log),
		Mailer:     f.mail,
		Words:      wordsGen,
		Metrics:    f.metrics,
		Log:        log,
		Domain:     "https://school.example",
		Workers:    4,
		Now:        f.clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	f.engine = reconcile.NewEngine(cfg)
	return f
}

func (f *fixture) markCount() int {
	f.marksMu.Lock()
	defer f.marksMu.Unlock()
	return f.marks
}

func (f *fixture) resetMarks() {
	f.marksMu.Lock()
	defer f.marksMu.Unlock()
	f.marks = 0
}

func (f *fixture) signup(email, country string, method students.PaymentMethod) *reconcile.SignupResult {
	f.t.Helper()
	res, err := f.engine.Signup(f.ctx, reconcile.SignupForm{
		Email:         email,
		FullName:      "Ada Lovelace",
		Country:       country,
		PaymentMethod: string(method),
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) summary(studentID uint) *reconcile.Summary {
	f.t.Helper()
	s, err := f.engine.Summary(f.ctx, studentID)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) settleBTCPay(externalID string) reconcile.Outcome {
	f.t.Helper()
	out, err := f.engine.HandleInvoiceSettled(f.ctx, billing.InvoiceSettled{
		Method:       students.BtcPay,
		ExternalID:   externalID,
		ClearingData: []byte(`{"type":"InvoiceSettled"}`),
	})
	require.NoError(f.t, err)
	return out
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
