// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package reset

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper deletes expired rows on a fixed interval.
type Sweeper struct {
	tasks    map[string]func(context.Context) (int64, error)
	interval time.Duration
}

// NewSweeper creates a sweeper. Register tasks with Add before calling Run.
func NewSweeper(interval time.Duration) *Sweeper {
	return &Sweeper{
		tasks:    make(map[string]func(context.Context) (int64, error)),
		interval: interval,
	}
}

// Add registers a cleanup task under name.
func (s *Sweeper) Add(name string, task func(context.Context) (int64, error)) *Sweeper {
	s.tasks[name] = task
	return s
}

// SweepOnce runs every task once and returns the number of deleted rows.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	var total int64
	for name, task := range s.tasks {
		n, err := task(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "sweep_failed", "task", name, "error", err)
			continue
		}
		if n > 0 {
			slog.DebugContext(ctx, "sweep_deleted", "task", name, "rows", n)
		}
		total += n
	}
	return total
}

// Run sweeps until ctx is cancelled. A non-positive interval disables it.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}
