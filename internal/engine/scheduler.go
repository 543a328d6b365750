package engine

import (
	"context"
	"log/slog"
	"time"
)

// Run drives the periodic batch cycle until the context is canceled. One
// cycle runs immediately, then one per interval. At most one cycle is active
// at a time within this process; every cross-cycle mutation is a conditional
// transition, so even a stale duplicate deployment cannot double-dispatch.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	slog.Info("attention engine started", "interval", interval)

	if _, err := e.RunCycle(ctx); err != nil {
		slog.Error("cycle failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.RunCycle(ctx); err != nil {
				slog.Error("cycle failed", "error", err)
			}
		case <-ctx.Done():
			slog.Info("attention engine stopped")
			return
		}
	}
}
