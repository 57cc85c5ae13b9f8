// Command billing-worker runs the daily billing tick: monthly charges for
// students whose invoicing day it is, their invoices and payment-link emails.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"student-billing/config"
	"student-billing/internal/app"
)

func main() {
	once := flag.String("once", "", "run a single tick for this date (YYYY-MM-DD) and exit")
	flag.Parse()

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

	sched := app.NewScheduler(a.Engine, cfg.TickSchedule, log.Named("scheduler"))

	if *once != "" {
		date, err := time.Parse(time.DateOnly, *once)
		if err != nil {
			log.Fatal("invalid -once date", zap.String("date", *once), zap.Error(err))
		}
		if err := sched.RunOnce(ctx, date); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}
	<-ctx.Done()
	log.Info("stopping scheduler")
	<-sched.Stop().Done()
}
