// Package scheduler wires up the cron job that periodically triggers a full
// tracking run in watch mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/go-johnnyhe/jobs/internal/tracker"
)

// Scheduler wraps robfig/cron around the tracker run loop.
type Scheduler struct {
	cron   *cron.Cron
	runner *tracker.Runner
	opts   tracker.Options
	spec   string // cron spec, e.g. "@every 6h"
	logger *slog.Logger
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner *tracker.Runner, opts tracker.Options, intervalHours int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		opts:   opts,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		logger: logger,
	}
}

// Start registers the job and starts the scheduler. Also fires one run
// immediately so watch mode does not sit idle until the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to register cron job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", slog.String("spec", s.spec))

	go s.runOnce(ctx)

	return nil
}

// Stop shuts the scheduler down. Already-running cycles finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.logger.Info("Scheduled tracking run started")

	result, err := s.runner.Run(ctx, s.opts)
	if err != nil {
		s.logger.Error("Scheduled tracking run failed", slog.Any("error", err))
		return
	}

	s.logger.Info("Scheduled tracking run complete",
		slog.Int("fetched", result.Fetched),
		slog.Int("new", result.New),
		slog.Int("notified", result.Notified),
	)
}
