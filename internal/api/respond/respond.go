// Package respond maps engine errors onto HTTP responses.
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
)

// Status picks the response code for err.
func Status(err error) int {
	switch {
	case billing.ValidationError.Has(err):
		return http.StatusUnprocessableEntity
	case billing.NotFoundError.Has(err):
		return http.StatusNotFound
	case billing.GatewayError.Has(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error": ...}. Internal failures are logged and their
// detail is not exposed.
func Error(c *gin.Context, log *zap.Logger, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
