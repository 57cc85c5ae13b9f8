// Package admin exposes the operator actions on student billing.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/internal/api/respond"
	"student-billing/internal/domain/billing"
	"student-billing/internal/reconcile"
)

type Engine interface {
	SettleInvoice(ctx context.Context, invoiceID uint) (reconcile.Outcome, error)
	InvoiceEverything(ctx context.Context, studentID uint) (*billing.Invoice, error)
	AwardDegree(ctx context.Context, studentID uint, description string) (*billing.Degree, error)
	Signup(ctx context.Context, form reconcile.SignupForm) (*reconcile.SignupResult, error)
}

type Handler struct {
	engine Engine
	log    *zap.Logger
}

func NewHandler(engine Engine, log *zap.Logger) *Handler {
	return &Handler{engine: engine, log: log}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// SettleInvoice records an off-gateway payment for an invoice.
func (h *Handler) SettleInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	outcome, err := h.engine.SettleInvoice(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	h.log.Info("invoice settled by admin",
		zap.Uint("invoice_id", id),
		zap.String("admin", c.GetString("email")),
		zap.String("outcome", string(outcome)))
	c.JSON(http.StatusOK, gin.H{"status": outcome})
}

func (h *Handler) InvoiceStudent(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	inv, err := h.engine.InvoiceEverything(c.Request.Context(), id)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice": inv})
}

type degreeInput struct {
	Description string `json:"description" binding:"required"`
}

func (h *Handler) AwardDegree(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in degreeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	degree, err := h.engine.AwardDegree(c.Request.Context(), id, in.Description)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, degree)
}

// SignupGuest enrolls a complimentary student.
func (h *Handler) SignupGuest(c *gin.Context) {
	var form reconcile.SignupForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	form.Complimentary = true
	result, err := h.engine.Signup(c.Request.Context(), form)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
