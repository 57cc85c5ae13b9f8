package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ticker is the daily billing run.
type Ticker interface {
	Tick(ctx context.Context, date time.Time) error
}

// Scheduler triggers the billing tick on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	ticker   Ticker
	schedule string
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(ticker Ticker, schedule string, log *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(log))
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		ticker:   ticker,
		schedule: schedule,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the tick and starts the cron scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { _ = s.RunOnce(ctx, s.now()) }); err != nil {
		return Error.New("invalid tick schedule %q: %v", s.schedule, err)
	}
	s.log.Info("scheduled billing tick", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop waits for a running tick to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce ticks for the calendar day of date. Errors are logged; the next
// run retries whatever failed since charge creation is idempotent.
func (s *Scheduler) RunOnce(ctx context.Context, date time.Time) error {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.ticker.Tick(ctx, day); err != nil {
		s.log.Error("billing tick finished with errors", zap.Time("date", day), zap.Error(err))
		return err
	}
	return nil
}
