package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type failedRescheduleRetrier interface {
	RetryFailed(ctx context.Context) (int, error)
}

// RescheduleSweeper periodically retries approved leaves whose reschedule run
// failed. Overlapping sweeps are skipped.
type RescheduleSweeper struct {
	retrier failedRescheduleRetrier
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewRescheduleSweeper builds a sweeper for the cron spec, e.g. "@every 10m".
func NewRescheduleSweeper(retrier failedRescheduleRetrier, spec string, timeout time.Duration, logger *zap.Logger) *RescheduleSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &RescheduleSweeper{
		retrier: retrier,
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		spec:    spec,
		timeout: timeout,
		logger:  logger,
	}
}

// Start registers the sweep and starts the scheduler.
func (s *RescheduleSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule reschedule sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("reschedule sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *RescheduleSweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("reschedule sweep still running at shutdown")
	}
}

// RunOnce performs one sweep.
func (s *RescheduleSweeper) RunOnce(ctx context.Context) {
	done, err := s.retrier.RetryFailed(ctx)
	if err != nil {
		s.logger.Error("reschedule sweep failed", zap.Int("repaired", done), zap.Error(err))
		return
	}
	if done > 0 {
		s.logger.Info("reschedule sweep repaired leaves", zap.Int("repaired", done))
	}
}
