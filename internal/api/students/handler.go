// Package students serves the student-facing signup and profile endpoints.
package students

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/internal/api/respond"
	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	domain "student-billing/internal/domain/students"
	"student-billing/internal/reconcile"
)

// Engine is the part of reconcile.Engine these handlers drive.
type Engine interface {
	Signup(ctx context.Context, form reconcile.SignupForm) (*reconcile.SignupResult, error)
	State(ctx context.Context, studentID uint) (*reconcile.StudentState, error)
	InvoiceEverything(ctx context.Context, studentID uint) (*billing.Invoice, error)
	SetPaymentMethod(ctx context.Context, studentID uint, method domain.PaymentMethod) error
	CompleteCommunity(ctx context.Context, state, accessToken string) (*domain.Student, error)
	Catalog() *plans.Catalog
}

type Handler struct {
	engine Engine
	log    *zap.Logger
}

func NewHandler(engine Engine, log *zap.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

// Pricing lists the sellable plans and the one that applies to ?country=.
func (h *Handler) Pricing(c *gin.Context) {
	catalog := h.engine.Catalog()
	resp := gin.H{"plans": catalog.Plans()}
	if country := c.Query("country"); country != "" {
		resp["plan"] = catalog.ForCountry(country)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Signup(c *gin.Context) {
	var form reconcile.SignupForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	result, err := h.engine.Signup(c.Request.Context(), form)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handler) Me(c *gin.Context) {
	state, err := h.engine.State(c.Request.Context(), c.GetUint("student_id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) PayNow(c *gin.Context) {
	inv, err := h.engine.InvoiceEverything(c.Request.Context(), c.GetUint("student_id"))
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	if inv == nil {
		c.JSON(http.StatusOK, gin.H{"status": "nothing to pay"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "invoiced", "invoice": inv})
}

type paymentMethodInput struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

func (h *Handler) SetPaymentMethod(c *gin.Context) {
	var in paymentMethodInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	method, err := domain.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		respond.Error(c, h.log, billing.Invalid("payment_method", "must be stripe or btcpay"))
		return
	}
	if err := h.engine.SetPaymentMethod(c.Request.Context(), c.GetUint("student_id"), method); err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "payment_method": method})
}

// DiscordSuccess is the OAuth redirect target. The page script forwards the
// fragment's access_token and state as query parameters.
func (h *Handler) DiscordSuccess(c *gin.Context) {
	state, token := c.Query("state"), c.Query("access_token")
	if state == "" || token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state and access_token are required"})
		return
	}
	st, err := h.engine.CompleteCommunity(c.Request.Context(), state, token)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "linked", "community_handle": st.CommunityHandle})
}
