package btcpaywebhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
	"student-billing/internal/infra/btcpay"
	"student-billing/internal/reconcile"
)

const maxBodyBytes = 65536

type Parser interface {
	Parse(payload []byte, signature string) (*billing.InvoiceSettled, error)
}

type Engine interface {
	HandleInvoiceSettled(ctx context.Context, ev billing.InvoiceSettled) (reconcile.Outcome, error)
}

type Handler struct {
	parser Parser
	engine Engine
	log    *zap.Logger
}

func NewHandler(parser Parser, engine Engine, log *zap.Logger) *Handler {
	return &Handler{parser: parser, engine: engine, log: log}
}

func (h *Handler) BTCPayWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	ev, err := h.parser.Parse(payload, c.GetHeader(btcpay.SignatureHeader))
	if errors.Is(err, btcpay.ErrSignature) {
		h.log.Warn("btcpay signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event"})
		return
	}
	if ev == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	outcome, err := h.engine.HandleInvoiceSettled(c.Request.Context(), *ev)
	if err != nil {
		h.log.Error("btcpay webhook failed", zap.String("invoice_external_id", ev.ExternalID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	if outcome == reconcile.Ignored {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received", "outcome": outcome})
}
