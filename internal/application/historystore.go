package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ericfisherdev/fastclip/internal/domain/codec"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// DefaultMaxEntries is the history bound used when none is configured.
const DefaultMaxEntries = 5

// StoreOption configures a HistoryStore.
type StoreOption func(*HistoryStore)

// WithMaxEntries sets the history bound. Values below 1 are ignored.
func WithMaxEntries(n int) StoreOption {
	return func(s *HistoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithDiscardCorrupt makes Load drop records that fail authentication instead
// of failing the whole load.
func WithDiscardCorrupt(discard bool) StoreOption {
	return func(s *HistoryStore) {
		s.discardCorrupt = discard
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *HistoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// HistoryStore is the bounded, deduplicated, most-recent-first clipboard
// history. Every mutation rewrites the whole encrypted history through the
// EntryFile before returning. All methods are serialized by one mutex, so
// readers never see a half-applied mutation.
type HistoryStore struct {
	mu             sync.Mutex
	file           driven.EntryFile
	key            model.Key
	entries        []model.Entry
	maxEntries     int
	discardCorrupt bool
	logger         *slog.Logger
}

// NewHistoryStore creates an empty store bound to file and key. Call Load to
// populate it from the durable representation.
func NewHistoryStore(file driven.EntryFile, key model.Key, opts ...StoreOption) *HistoryStore {
	s := &HistoryStore{
		file:       file,
		key:        key,
		maxEntries: DefaultMaxEntries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory history with the durable one. An empty handle is
// initialized to an empty encrypted array. Unparseable bytes are a fatal
// ErrSerialization and leave the store untouched.
func (s *HistoryStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.file.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read entry file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		s.logger.Info("initializing new empty clipboard history")
		s.entries = nil
		return s.saveLocked(ctx)
	}

	var encrypted []model.EncryptedEntry
	if err := json.Unmarshal(data, &encrypted); err != nil {
		return fmt.Errorf("%w: parse entry file: %v", ErrSerialization, err)
	}

	entries := make([]model.Entry, 0, len(encrypted))
	var dropped int
	for i, enc := range encrypted {
		entry, err := codec.Decode(enc, s.key)
		if err != nil {
			if s.discardCorrupt && errors.Is(err, codec.ErrDecode) {
				s.logger.Warn("discarding unreadable clipboard entry", "index", i, "error", err)
				dropped++
				continue
			}
			return fmt.Errorf("load entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	var trimmed int
	if len(entries) > s.maxEntries {
		trimmed = len(entries) - s.maxEntries
		entries = entries[:s.maxEntries]
	}

	s.entries = entries
	s.logger.Debug("loaded clipboard history", "entries", len(entries), "dropped", dropped, "trimmed", trimmed)

	if dropped > 0 || trimmed > 0 {
		return s.saveLocked(ctx)
	}
	return nil
}

// Save persists the current history, replacing the previous durable state.
func (s *HistoryStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// saveLocked encrypts and serializes everything before touching the file, so
// a serialization failure never truncates the durable copy.
func (s *HistoryStore) saveLocked(ctx context.Context) error {
	encrypted := make([]model.EncryptedEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		enc, err := codec.Encode(entry, s.key)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSerialization, err)
		}
		encrypted = append(encrypted, enc)
	}

	data, err := json.Marshal(encrypted)
	if err != nil {
		return fmt.Errorf("%w: marshal entries: %v", ErrSerialization, err)
	}

	if err := s.file.Rewrite(ctx, data); err != nil {
		return fmt.Errorf("rewrite entry file: %w", err)
	}
	return nil
}

// Add records entry as the most recent capture. If an entry with identical
// content already exists it is moved to the front unchanged and the supplied
// entry is discarded. Otherwise the entry is inserted at the front and the
// oldest entries are evicted to stay within the bound.
func (s *HistoryStore) Add(ctx context.Context, entry model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := slices.IndexFunc(s.entries, entry.SameContent); idx >= 0 {
		existing := s.entries[idx]
		copy(s.entries[1:idx+1], s.entries[:idx])
		s.entries[0] = existing
	} else {
		entry.Content = bytes.Clone(entry.Content)
		s.entries = slices.Insert(s.entries, 0, entry)
		if len(s.entries) > s.maxEntries {
			clear(s.entries[s.maxEntries:])
			s.entries = s.entries[:s.maxEntries]
		}
	}

	return s.saveLocked(ctx)
}

// Remove deletes the entry at index, where 0 is the most recent.
func (s *HistoryStore) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("%w: cannot remove entry at index %d of %d", ErrInvalidOperation, index, len(s.entries))
	}
	s.entries = slices.Delete(s.entries, index, index+1)

	return s.saveLocked(ctx)
}

// Get returns the entry at index modulo the history length, so an unbounded
// counter always lands on an entry. An empty history returns ErrEmptyHistory.
func (s *HistoryStore) Get(index int) (model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return model.Entry{}, ErrEmptyHistory
	}
	if index < 0 {
		return model.Entry{}, fmt.Errorf("%w: negative index %d", ErrInvalidOperation, index)
	}
	return cloneEntry(s.entries[index%len(s.entries)]), nil
}

// List returns a copy of the history, most recent first.
func (s *HistoryStore) List() []model.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Entry, len(s.entries))
	for i, entry := range s.entries {
		out[i] = cloneEntry(entry)
	}
	return out
}

// Size returns the number of entries in the history.
func (s *HistoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MaxEntries returns the configured bound.
func (s *HistoryStore) MaxEntries() int {
	return s.maxEntries
}

func cloneEntry(e model.Entry) model.Entry {
	e.Content = bytes.Clone(e.Content)
	return e
}
