package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"student-billing/internal/domain/billing"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, Status(billing.Invalid("email", "bad")))
	assert.Equal(t, http.StatusNotFound, Status(billing.NotFoundError.New("student")))
	assert.Equal(t, http.StatusBadGateway, Status(billing.GatewayError.Wrap(errors.New("timeout"))))
	assert.Equal(t, http.StatusInternalServerError, Status(billing.PersistenceError.New("db")))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, zaptest.NewLogger(t), errors.New("password=hunter2"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}
