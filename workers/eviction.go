package workers

import (
	"context"
	"log/slog"
	"time"

	"signal-relay/services"
)

// EvictionWorker drives the eviction sweeper on a fixed schedule,
// independent of request handling, so housekeeping still happens on an
// idle relay where no send ever triggers the inline sweep.
type EvictionWorker struct {
	log      *slog.Logger
	sweeper  services.Sweeper
	interval time.Duration
}

func NewEvictionWorker(log *slog.Logger, sweeper services.Sweeper, interval time.Duration) *EvictionWorker {
	return &EvictionWorker{log: log, sweeper: sweeper, interval: interval}
}

// Run executes the main loop of the worker, sweeping once per interval until
// the context is cancelled.
func (w *EvictionWorker) Run(ctx context.Context) error {
	w.log.Info("Starting eviction worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.sweeper.Sweep()
		}
	}
}
