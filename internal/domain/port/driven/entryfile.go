package driven

import "context"

// EntryFile defines the driven port for the durable handle that holds the
// encrypted history. Implementations store one opaque blob and replace it in
// full on every write.
type EntryFile interface {
	// ReadAll returns the complete stored blob. An absent or never-written
	// handle returns (nil, nil).
	ReadAll(ctx context.Context) ([]byte, error)

	// Rewrite discards the previous blob and stores data in its place.
	Rewrite(ctx context.Context, data []byte) error

	// Close releases the underlying resource.
	Close() error
}
