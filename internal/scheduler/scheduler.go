package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"vacancy_syncer/internal/domain"
)

// Runner runs the synchronization pipeline; an empty sourceID means every enabled source.
type Runner interface {
	Run(ctx context.Context, sourceID string) ([]domain.RunSummary, error)
}

type Scheduler struct {
	runner     Runner
	spec       string
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, spec string, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		spec:       spec,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start runs one pass immediately, then one per cron tick until ctx is done.
// A tick that fires while the previous pass is still running is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	s.logger.Info("scheduler started", "schedule", s.spec)

	s.runOnce(ctx)
	c.Start()

	<-ctx.Done()

	stopped := c.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")

	return ctx.Err()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	summaries, err := s.runner.Run(runCtx, "")
	if errors.Is(err, domain.ErrNoEnabledSources) {
		s.logger.Info("no enabled sources")
		return
	}
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return
	}

	failed := 0
	for _, summary := range summaries {
		if summary.Status == domain.RunStatusFailed {
			failed++
		}
	}
	s.logger.Info("sync pass finished", "sources", len(summaries), "failed", failed)
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
