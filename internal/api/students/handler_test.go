package students

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	domain "student-billing/internal/domain/students"
	"student-billing/internal/reconcile"
)

type fakeEngine struct {
	form      reconcile.SignupForm
	signupErr error
	invoice   *billing.Invoice
	method    domain.PaymentMethod
	state     string
}

func (f *fakeEngine) Signup(_ context.Context, form reconcile.SignupForm) (*reconcile.SignupResult, error) {
	f.form = form
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &reconcile.SignupResult{Student: &domain.Student{ID: 1, Email: form.Email}, ProfileLink: "https://school.example/students/?token=x"}, nil
}

func (f *fakeEngine) State(_ context.Context, id uint) (*reconcile.StudentState, error) {
	if id != 1 {
		return nil, billing.NotFoundError.New("student")
	}
	return &reconcile.StudentState{Student: &domain.Student{ID: 1}}, nil
}

func (f *fakeEngine) InvoiceEverything(context.Context, uint) (*billing.Invoice, error) {
	return f.invoice, nil
}

func (f *fakeEngine) SetPaymentMethod(_ context.Context, _ uint, m domain.PaymentMethod) error {
	f.method = m
	return nil
}

func (f *fakeEngine) CompleteCommunity(_ context.Context, state, _ string) (*domain.Student, error) {
	f.state = state
	handle := "ada#1815"
	return &domain.Student{ID: 1, CommunityHandle: &handle}, nil
}

func (f *fakeEngine) Catalog() *plans.Catalog { return plans.DefaultCatalog() }

func router(t *testing.T, e Engine) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(e, zaptest.NewLogger(t))
	r := gin.New()
	asStudent := func(c *gin.Context) { c.Set("student_id", uint(1)) }
	r.GET("/pricing", h.Pricing)
	r.POST("/students", h.Signup)
	r.GET("/students/me", asStudent, h.Me)
	r.POST("/students/me/pay_now", asStudent, h.PayNow)
	r.POST("/students/me/payment_method", asStudent, h.SetPaymentMethod)
	r.GET("/students/discord_success", h.DiscordSuccess)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPricing(t *testing.T) {
	w := do(router(t, &fakeEngine{}), http.MethodGet, "/pricing?country=ar", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Plans []plans.Plan `json:"plans"`
		Plan  plans.Plan   `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Plans, 3)
	assert.Equal(t, plans.Latam, resp.Plan.Code)
	assert.True(t, decimal.NewFromInt(100).Equal(resp.Plan.SignupPrice))
}

func TestSignup(t *testing.T) {
	e := &fakeEngine{}
	r := router(t, e)

	w := do(r, http.MethodPost, "/students", `{"email":"ada@example.com","full_name":"Ada","country":"AR","payment_method":"btcpay","complimentary":true}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ada@example.com", e.form.Email)
	assert.False(t, e.form.Complimentary)
	assert.Contains(t, w.Body.String(), "profile_link")

	e.signupErr = billing.Invalid("email", "must be a valid email address")
	w = do(r, http.MethodPost, "/students", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/students", `[`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMe(t *testing.T) {
	w := do(router(t, &fakeEngine{}), http.MethodGet, "/students/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPayNow(t *testing.T) {
	e := &fakeEngine{}
	r := router(t, e)

	w := do(r, http.MethodPost, "/students/me/pay_now", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nothing to pay")

	e.invoice = &billing.Invoice{ID: 3, URL: "https://pay.example/3", Amount: decimal.NewFromInt(130)}
	w = do(r, http.MethodPost, "/students/me/pay_now", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://pay.example/3")
}

func TestSetPaymentMethod(t *testing.T) {
	e := &fakeEngine{}
	r := router(t, e)

	w := do(r, http.MethodPost, "/students/me/payment_method", `{"payment_method":"Stripe"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Stripe, e.method)

	w = do(r, http.MethodPost, "/students/me/payment_method", `{"payment_method":"paypal"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(r, http.MethodPost, "/students/me/payment_method", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiscordSuccess(t *testing.T) {
	e := &fakeEngine{}
	r := router(t, e)

	w := do(r, http.MethodGet, "/students/discord_success?state=apple%2Bpear&access_token=tok", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "apple+pear", e.state)
	assert.Contains(t, w.Body.String(), "ada#1815")

	w = do(r, http.MethodGet, "/students/discord_success?state=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
