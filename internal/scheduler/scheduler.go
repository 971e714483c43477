// Package scheduler periodically drives the moderation pipeline while the
// server runs.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ykihara/commentguard/internal/model"
)

// Runner executes one moderation batch and reports the outcome as data.
type Runner func(ctx context.Context) *model.BatchResult

// Scheduler runs a batch at a fixed interval until its context is canceled.
type Scheduler struct {
	interval time.Duration
	run      Runner
	logger   *slog.Logger
	done     chan struct{}
}

// New creates a scheduler. Intervals under a minute are raised to a minute
// to keep the YouTube quota sane.
func New(interval time.Duration, run Runner, logger *slog.Logger) *Scheduler {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Scheduler{
		interval: interval,
		run:      run,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the ticker loop in its own goroutine. The first batch runs
// after one full interval, not immediately, so a restart loop cannot hammer
// the API.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.logger.Info("scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			result := s.run(ctx)
			s.logger.Info("scheduled batch finished",
				"processed", result.ProcessedCount,
				"hidden", result.HiddenCount,
				"held", result.HeldCount,
				"errors", len(result.Errors))
		}
	}
}

// Wait blocks until the loop has exited after context cancellation.
func (s *Scheduler) Wait() {
	<-s.done
}
