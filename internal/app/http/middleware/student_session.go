package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// SessionHeader is an alternative to the ?token= query parameter.
const SessionHeader = "X-Student-Token"

type SessionResolver interface {
	StudentForSession(ctx context.Context, token string) (*students.Student, error)
}

// RequireStudentSession resolves the profile-link token and stores the
// student's id under "student_id".
func RequireStudentSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = c.GetHeader(SessionHeader)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session token missing"})
			return
		}

		st, err := resolver.StudentForSession(c.Request.Context(), token)
		if billing.NotFoundError.Has(err) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session not found or expired"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set("student_id", st.ID)
		c.Next()
	}
}
