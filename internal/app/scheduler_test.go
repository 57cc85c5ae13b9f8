package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type tickFunc func(ctx context.Context, date time.Time) error

func (f tickFunc) Tick(ctx context.Context, date time.Time) error { return f(ctx, date) }

func TestRunOnceTruncatesToDay(t *testing.T) {
	var got time.Time
	s := NewScheduler(tickFunc(func(_ context.Context, date time.Time) error {
		got = date
		return nil
	}), "0 6 * * *", zaptest.NewLogger(t))

	require.NoError(t, s.RunOnce(context.Background(), time.Date(2024, 2, 29, 6, 0, 3, 0, time.UTC)))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestRunOnceReturnsTickError(t *testing.T) {
	boom := errors.New("boom")
	s := NewScheduler(tickFunc(func(context.Context, time.Time) error { return boom }), "@daily", zaptest.NewLogger(t))
	assert.ErrorIs(t, s.RunOnce(context.Background(), time.Now()), boom)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(tickFunc(func(context.Context, time.Time) error { return nil }), "every tuesday", zaptest.NewLogger(t))
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.True(t, Error.Has(err))
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger("loud")
	assert.True(t, Error.Has(err))
}
