package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// DefaultPollInterval is the delay between clipboard reads when nothing changed.
const DefaultPollInterval = time.Second

// ChangeTracker detects clipboard changes by comparing each snapshot with the
// last one it reported. It never writes anywhere; it only hands back content.
// A ChangeTracker is driven by a single goroutine.
type ChangeTracker struct {
	source   driven.ClipboardSource
	interval time.Duration
	logger   *slog.Logger
	lastSeen []byte
	hasLast  bool
}

// NewChangeTracker creates a tracker polling source every interval. A
// non-positive interval selects DefaultPollInterval.
func NewChangeTracker(source driven.ClipboardSource, interval time.Duration, logger *slog.Logger) *ChangeTracker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeTracker{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Prime records the current clipboard as already seen without reporting it.
func (t *ChangeTracker) Prime(ctx context.Context) {
	if snap, ok := t.read(ctx); ok {
		t.lastSeen = bytes.Clone(snap.Content)
		t.hasLast = true
	}
}

// LastSeen returns a copy of the content last reported or primed, or nil.
func (t *ChangeTracker) LastSeen() []byte {
	return bytes.Clone(t.lastSeen)
}

// Next blocks until the clipboard holds content different from the last
// observation and returns it. Each wake-up compares afresh, so content that
// changed and reverted while waiting is not reported. Next returns ctx.Err()
// once ctx is done.
func (t *ChangeTracker) Next(ctx context.Context) (model.Snapshot, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return model.Snapshot{}, ctx.Err()
		case <-timer.C:
		}

		if snap, changed := t.evaluate(ctx); changed {
			return snap, nil
		}
		timer.Reset(t.interval)
	}
}

// evaluate performs one comparison against lastSeen.
func (t *ChangeTracker) evaluate(ctx context.Context) (model.Snapshot, bool) {
	snap, ok := t.read(ctx)
	if !ok {
		return model.Snapshot{}, false
	}
	if t.hasLast && bytes.Equal(snap.Content, t.lastSeen) {
		return model.Snapshot{}, false
	}

	t.lastSeen = bytes.Clone(snap.Content)
	t.hasLast = true
	t.logger.Debug("clipboard changed", "kind", snap.Kind, "bytes", len(snap.Content))
	return snap, true
}

// read treats every source failure as "nothing to report".
func (t *ChangeTracker) read(ctx context.Context) (model.Snapshot, bool) {
	snap, err := t.source.Read(ctx)
	if err != nil {
		if !errors.Is(err, driven.ErrNoContent) && ctx.Err() == nil {
			t.logger.Debug("clipboard read failed", "error", err)
		}
		return model.Snapshot{}, false
	}
	return snap, true
}
