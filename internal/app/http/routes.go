package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "student-billing/internal/api/admin"
	"student-billing/internal/api/btcpaywebhook"
	stripewebhooks "student-billing/internal/api/stripewebhook"
	studentsapi "student-billing/internal/api/students"
	"student-billing/internal/app/http/middleware"
)

type Handlers struct {
	Students      *studentsapi.Handler
	Admin         *adminapi.Handler
	StripeWebhook *stripewebhooks.Handler
	BTCPayWebhook *btcpaywebhook.Handler
	Sessions      middleware.SessionResolver
	Metrics       http.Handler
	JWTSecret     string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// Webhooks verify their own signatures against the raw body.
	r.POST("/webhooks/stripe", h.StripeWebhook.StripeWebhook)
	r.POST("/webhooks/btcpay", h.BTCPayWebhook.BTCPayWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.GET("/pricing", h.Students.Pricing)
	public.POST("/students", h.Students.Signup)
	public.GET("/students/discord_success", h.Students.DiscordSuccess)

	// Students holding a profile link
	me := public.Group("/students/me")
	me.Use(middleware.RequireStudentSession(h.Sessions))
	me.GET("", h.Students.Me)
	me.POST("/pay_now", h.Students.PayNow)
	me.POST("/payment_method", h.Students.SetPaymentMethod)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(h.JWTSecret), middleware.RequireRole("admin"))
	admin.POST("/invoices/:id/settle", h.Admin.SettleInvoice)
	admin.POST("/students", h.Admin.SignupGuest)
	admin.POST("/students/:id/invoice", h.Admin.InvoiceStudent)
	admin.POST("/students/:id/degrees", h.Admin.AwardDegree)
}
