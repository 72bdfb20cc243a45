// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// CaptureService runs the daemon's background loop: wait for a clipboard
// change, announce it on the hub, then record it in the history.
type CaptureService struct {
	tracker *ChangeTracker
	store   *HistoryStore
	hub     *Hub
	now     func() time.Time
	logger  *slog.Logger
}

// NewCaptureService creates a CaptureService. now defaults to time.Now.
func NewCaptureService(tracker *ChangeTracker, store *HistoryStore, hub *Hub, now func() time.Time, logger *slog.Logger) *CaptureService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureService{
		tracker: tracker,
		store:   store,
		hub:     hub,
		now:     now,
		logger:  logger,
	}
}

// Start blocks until ctx is canceled. The tracker carries its last observation
// across iterations, so each change is captured once.
func (s *CaptureService) Start(ctx context.Context) {
	s.logger.Info("capture service started")

	for {
		snap, err := s.tracker.Next(ctx)
		if err != nil {
			s.logger.Info("capture service stopped")
			return
		}
		s.capture(ctx, snap)
	}
}

// capture publishes before persisting; subscribers may see a change before it
// is durable.
func (s *CaptureService) capture(ctx context.Context, snap model.Snapshot) {
	delivered := s.hub.Publish(snap.Content)

	entry := model.NewEntry(snap.Content, snap.Kind, s.now())
	if err := s.store.Add(ctx, entry); err != nil {
		s.logger.Error("persist clipboard entry failed", "kind", snap.Kind, "bytes", len(snap.Content), "error", err)
		return
	}

	s.logger.Info("clipboard captured",
		"kind", snap.Kind,
		"bytes", len(snap.Content),
		"subscribers", delivered,
		"entries", s.store.Size(),
	)
}
