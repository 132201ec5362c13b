package application

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Scheduler runs the full import cycle on a fixed interval in a single
// long-lived loop. The interval is measured from cycle end, so a slow cycle
// never compounds with the next one.
type Scheduler struct {
	imports  *ImportService
	interval time.Duration
	started  atomic.Bool
}

// NewScheduler creates a Scheduler driving the given ImportService.
func NewScheduler(imports *ImportService, interval time.Duration) *Scheduler {
	return &Scheduler{
		imports:  imports,
		interval: interval,
	}
}

// Start runs the periodic import loop until the context is canceled. It is
// idempotent: a second call observes the started flag and returns
// immediately, guarding against duplicate initialization in environments
// that re-enter startup.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		slog.Warn("scheduler already started, ignoring duplicate start")
		return
	}

	slog.Info("periodic import scheduler started", "interval", s.interval)

	for {
		s.runCycle(ctx)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("periodic import scheduler stopped")
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one full import cycle. Panics and errors are contained
// here so the loop itself never dies.
func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("import cycle panicked", "panic", v)
		}
	}()

	start := time.Now()

	processed, failed, err := s.imports.ImportAll(ctx)
	if err != nil {
		slog.Error("import cycle failed", "error", err)
		return
	}

	slog.Info("import cycle complete",
		"accounts", processed,
		"errors", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
