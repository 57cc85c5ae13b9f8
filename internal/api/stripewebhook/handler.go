package stripewebhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
	"student-billing/internal/infra/stripe"
	"student-billing/internal/reconcile"
)

const maxBodyBytes = 65536

type Parser interface {
	Parse(payload []byte, signature string) (*billing.CustomerPaid, error)
}

type Engine interface {
	HandleCustomerPaid(ctx context.Context, ev billing.CustomerPaid) (reconcile.Outcome, error)
}

type Handler struct {
	parser Parser
	engine Engine
	log    *zap.Logger
}

func NewHandler(parser Parser, engine Engine, log *zap.Logger) *Handler {
	return &Handler{parser: parser, engine: engine, log: log}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ev, err := h.parser.Parse(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, stripe.ErrSignature) {
		h.log.Warn("stripe signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}
	// Acknowledge events we do not act on to avoid retries.
	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	outcome, err := h.engine.HandleCustomerPaid(c.Request.Context(), *ev)
	if err != nil {
		// 500 makes Stripe retry; the external ref keeps the retry idempotent.
		h.log.Error("stripe webhook failed", zap.String("customer_id", ev.CustomerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if outcome == reconcile.Ignored {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": outcome})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
