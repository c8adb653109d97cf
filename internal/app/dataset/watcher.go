package dataset

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"presence/internal/pkg/logx"
)

// PublishFunc receives every polled snapshot. changed is true when the
// snapshot should be announced to all clients.
type PublishFunc func(snap Snapshot, changed bool)

// Watcher polls a Provider and publishes its snapshots.
// The poll runs on the watcher's own goroutine so file and network I/O never
// block the relay loop.
type Watcher struct {
	provider Provider
	interval time.Duration
	publish  PublishFunc

	// announced is the last snapshot published with changed=true.
	announced Snapshot

	logger zerolog.Logger
}

// NewWatcher creates a watcher polling p every interval.
func NewWatcher(p Provider, interval time.Duration, publish PublishFunc) *Watcher {
	return &Watcher{
		provider: p,
		interval: interval,
		publish:  publish,
		logger:   logx.Component("DatasetWatcher"),
	}
}

// Prime takes the initial snapshot and records it as announced without a broadcast.
func (w *Watcher) Prime(ctx context.Context) Snapshot {
	snap := w.snapshot(ctx)
	w.announced = snap
	w.publish(snap, false)
	return snap
}

// Poll takes one snapshot, publishes it, and reports whether it was a change.
func (w *Watcher) Poll(ctx context.Context) bool {
	snap := w.snapshot(ctx)

	changed := snap.ChangedFrom(w.announced)
	if changed {
		w.announced = snap
		w.logger.Info().
			Str("path", snap.Path).
			Int64("size", snap.Size).
			Int("rows", snap.Rows).
			Msg("Dataset changed.")
	}

	w.publish(snap, changed)
	return changed
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("Dataset watcher started.")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Dataset watcher stopped.")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

func (w *Watcher) snapshot(ctx context.Context) Snapshot {
	snap, err := w.provider.Snapshot(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to read dataset info.")
		return Missing
	}
	return snap
}
