// Package app assembles the billing engine and its collaborators from
// configuration. Both the API and the worker binaries start here.
package app

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"student-billing/config"
	"student-billing/database"
	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/infra/btcpay"
	"student-billing/internal/infra/discord"
	"student-billing/internal/infra/lock"
	"student-billing/internal/infra/mailer"
	"student-billing/internal/infra/passphrase"
	"student-billing/internal/infra/stripe"
	"student-billing/internal/infra/wordpress"
	"student-billing/internal/metrics"
	"student-billing/internal/reconcile"
	"student-billing/internal/store"
)

var Error = errs.Class("app")

// lockTTL bounds how long a crashed holder blocks a student. Live holders
// keep extending it.
const lockTTL = 2 * time.Minute

func NewLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, Error.New("invalid LOG_LEVEL %q", level)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

type App struct {
	DB            *gorm.DB
	Engine        *reconcile.Engine
	Registry      *prometheus.Registry
	StripeWebhook *stripe.Webhook
	BTCPayWebhook *btcpay.Webhook
	redis         *redis.Client
}

// New connects to storage and wires the engine. Stripe price ids are checked
// against the account before anything is served.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.DBURL, log)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	stripeClient := stripe.NewClient(cfg.StripeSecretKey)
	if err := stripe.ValidatePrices(ctx, stripeClient, cfg.StripePrices); err != nil {
		return nil, err
	}

	a := &App{
		DB:            db,
		Registry:      prometheus.NewRegistry(),
		StripeWebhook: stripe.NewWebhook(cfg.StripeWebhookSecret),
		BTCPayWebhook: btcpay.NewWebhook(cfg.BTCPay.WebhookSecret),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var locker reconcile.Locker = lock.NewLocal()
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, Error.New("invalid REDIS_URL: %v", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, Error.New("redis ping: %v", err)
		}
		locker = lock.NewRedis(a.redis, lockTTL, log.Named("lock"))
		log.Info("per-student locks in redis")
	}

	st := store.New(db)
	words := passphrase.New(4)
	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Password: cfg.SMTP.Password,
	}, log.Named("mailer"))
	lms := wordpress.NewClient(cfg.WordPress.APIURL, cfg.WordPress.User, cfg.WordPress.Pass, cfg.WordPress.StudentGroupID)
	community := discord.NewClient(discord.Config{
		GuildID:        cfg.Discord.GuildID,
		BotToken:       cfg.Discord.BotToken,
		ClientID:       cfg.Discord.ClientID,
		StudentRoleID:  cfg.Discord.StudentRoleID,
		CheckoutDomain: cfg.CheckoutDomain,
	})

	a.Engine = reconcile.NewEngine(reconcile.Config{
		Store:   st,
		Catalog: plans.DefaultCatalog(),
		Gateways: []billing.Gateway{
			stripe.NewGateway(stripeClient, cfg.StripePrices, cfg.CheckoutDomain),
			btcpay.NewGateway(btcpay.NewClient(cfg.BTCPay.URL, cfg.BTCPay.StoreID, cfg.BTCPay.APIKey)),
		},
		Locker:     locker,
		Onboarding: reconcile.NewOnboarding(st, lms, community, mail, words, log.Named("onboarding")),
		Mailer:     mail,
		Words:      words,
		Metrics:    metrics.New(a.Registry),
		Log:        log.Named("billing"),
		Domain:     cfg.CheckoutDomain,
		Workers:    cfg.TickWorkers,
	})
	return a, nil
}

func (a *App) Close() error {
	var group errs.Group
	if a.redis != nil {
		group.Add(a.redis.Close())
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		group.Add(sqlDB.Close())
	} else {
		group.Add(err)
	}
	return group.Err()
}
