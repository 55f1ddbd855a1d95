package events

import (
	"context"
	"log/slog"
	"time"
)

// RetentionWorker periodically trims the event store down to a fixed number
// of most recent records. A single worker runs one pass at a time; it is not
// connected to request handling.
type RetentionWorker struct {
	store    Store
	keep     int
	interval time.Duration
	logger   *slog.Logger
}

// NewRetentionWorker creates a worker that keeps the given number of records.
// The sweep runs daily by default.
func NewRetentionWorker(store Store, keep int, logger *slog.Logger) *RetentionWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionWorker{
		store:    store,
		keep:     keep,
		interval: 24 * time.Hour,
		logger:   logger,
	}
}

// Run starts the retention worker. It runs until the context is cancelled.
func (w *RetentionWorker) Run(ctx context.Context) {
	if w.store == nil || w.keep <= 0 {
		w.logger.Info("event retention worker disabled",
			"hasStore", w.store != nil,
			"keep", w.keep)
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("event retention worker started",
		"keep", w.keep,
		"interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("event retention worker stopped")
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

// cleanup performs a single retention pass.
func (w *RetentionWorker) cleanup(ctx context.Context) {
	removed, err := w.store.PurgeOldest(ctx, w.keep)
	if err != nil {
		w.logger.Error("event retention cleanup failed", "error", err)
	} else if removed > 0 {
		w.logger.Info("event retention cleanup completed",
			"removed", removed,
			"keep", w.keep)
	}
}
