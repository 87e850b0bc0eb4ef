// Package worker holds background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// VisitPruner is the slice of the visit log store the pruner needs.
type VisitPruner interface {
	DeleteOlderThan(ctx context.Context, before time.Time) (int, error)
}

// Pruner deletes visit logs older than the retention period.
type Pruner struct {
	retention time.Duration
	visits    VisitPruner
	now       func() time.Time
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker. A zero retention disables it.
func NewPruner(retention time.Duration, visits VisitPruner) *Pruner {
	return &Pruner{
		retention: retention,
		visits:    visits,
		now:       time.Now,
		log:       slog.Default().With("component", "pruner"),
	}
}

// Interval returns how often the pruner runs: a tenth of the retention,
// clamped to between one minute and one hour.
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune removes expired logs once and returns how many were removed.
func (p *Pruner) Prune(ctx context.Context) int {
	threshold := p.now().Add(-p.retention)
	n, err := p.visits.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune visit logs", "before", threshold, "error", err)
		return 0
	}
	if n > 0 {
		p.log.Info("Pruned visit logs", "removed", n, "before", threshold)
	}
	return n
}
