package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// ClipboardService is the query/subscribe boundary shared by every transport.
// Reads go straight to the HistoryStore; subscriptions go to the Hub and never
// take the store's lock.
type ClipboardService struct {
	store  *HistoryStore
	hub    *Hub
	now    func() time.Time
	logger *slog.Logger
}

// NewClipboardService creates a ClipboardService.
func NewClipboardService(store *HistoryStore, hub *Hub, logger *slog.Logger) *ClipboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClipboardService{
		store:  store,
		hub:    hub,
		now:    time.Now,
		logger: logger,
	}
}

// Ping is the liveness probe.
func (s *ClipboardService) Ping() string {
	return "pong"
}

// Entries returns a consistent snapshot of the history, most recent first.
func (s *ClipboardService) Entries() []model.Entry {
	return s.store.List()
}

// EntriesJSON returns the history snapshot encoded as a JSON array.
func (s *ClipboardService) EntriesJSON() (string, error) {
	data, err := json.Marshal(s.store.List())
	if err != nil {
		return "", fmt.Errorf("%w: marshal entries: %v", ErrSerialization, err)
	}
	return string(data), nil
}

// Entry returns the entry at index, wrapping past the end.
func (s *ClipboardService) Entry(index int) (model.Entry, error) {
	return s.store.Get(index)
}

// AddEntry records a manually supplied capture.
func (s *ClipboardService) AddEntry(ctx context.Context, content []byte, kind model.EntryKind) (model.Entry, error) {
	if !kind.Valid() {
		return model.Entry{}, fmt.Errorf("%w: unknown entry kind %q", ErrInvalidOperation, kind)
	}
	entry := model.NewEntry(content, kind, s.now())
	if err := s.store.Add(ctx, entry); err != nil {
		return model.Entry{}, err
	}
	return entry, nil
}

// RemoveEntry deletes the entry at index.
func (s *ClipboardService) RemoveEntry(ctx context.Context, index int) error {
	return s.store.Remove(ctx, index)
}

// OpenSubscription registers for the next change without waiting yet, for
// transports that acknowledge a subscription before delivering it.
func (s *ClipboardService) OpenSubscription() *Subscription {
	return s.hub.Subscribe()
}

// SubscribeEntry waits for exactly one change and returns its raw content.
func (s *ClipboardService) SubscribeEntry(ctx context.Context) ([]byte, error) {
	return s.hub.Subscribe().Next(ctx)
}

// UnsubscribeEntry releases a pending subscription.
func (s *ClipboardService) UnsubscribeEntry(id uint64) bool {
	return s.hub.Unsubscribe(id)
}
