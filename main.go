package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"student-billing/config"
	adminapi "student-billing/internal/api/admin"
	"student-billing/internal/api/btcpaywebhook"
	stripewebhooks "student-billing/internal/api/stripewebhook"
	studentsapi "student-billing/internal/api/students"
	"student-billing/internal/app"
	routes "student-billing/internal/app/http"
	"student-billing/internal/app/http/middleware"
	"student-billing/internal/metrics"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	cfg := config.LoadEnv()

	log, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(log.Named("http")))

	// ✅ Add CORS middleware BEFORE registering routes
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	apiLog := log.Named("api")
	routes.RegisterRoutes(r, routes.Handlers{
		Students:      studentsapi.NewHandler(a.Engine, apiLog),
		Admin:         adminapi.NewHandler(a.Engine, apiLog),
		StripeWebhook: stripewebhooks.NewHandler(a.StripeWebhook, a.Engine, apiLog),
		BTCPayWebhook: btcpaywebhook.NewHandler(a.BTCPayWebhook, a.Engine, apiLog),
		Sessions:      a.Engine,
		Metrics:       metrics.Handler(a.Registry),
		JWTSecret:     cfg.JWTSecret,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", zap.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server", zap.Error(err))
	}
}
