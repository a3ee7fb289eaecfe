package index

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/docindex"
)

// DefaultInterval is the time between scheduled runs.
const DefaultInterval = 24 * time.Hour

// State is the scheduler's position in its cycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Scheduler re-runs the indexer on a fixed interval.
type Scheduler struct {
	Runner   docindex.IndexRunner
	Interval time.Duration
	Logger   *slog.Logger

	running atomic.Bool
}

// Run starts a run immediately and then another one Interval after each
// run completes, until ctx is cancelled. A failed run is logged and counts
// as a completed cycle; Run only returns ctx's error.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	for {
		s.runOnce(ctx, logger, interval)

		logger.Info("next scheduled index", "in", interval)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// State reports whether a scheduled run is in progress.
func (s *Scheduler) State() State {
	if s.running.Load() {
		return StateRunning
	}
	return StateIdle
}

// runOnce performs one scheduled run. The runner's decorators report the
// cause of a failure; only the schedule context is logged here.
func (s *Scheduler) runOnce(ctx context.Context, logger *slog.Logger, interval time.Duration) {
	s.running.Store(true)
	defer s.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled index panicked", "panic", r)
		}
	}()

	logger.Info("scheduled index starting")
	result, err := s.Runner.RunIndex(ctx, "")
	if err != nil {
		logger.Warn("scheduled index failed", "retry_in", interval)
		return
	}
	logger.Info("scheduled index finished",
		"run", result.ID,
		"repositories", result.Indexed,
		"failed", result.Failed,
		"files", result.Files,
	)
}
