package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

// ErrNoContent is returned by a ClipboardSource when the clipboard is empty
// or holds nothing in a supported format. Callers treat it as "no change".
var ErrNoContent = errors.New("clipboard has no supported content")

// ClipboardSource defines the driven port for reading the system clipboard.
type ClipboardSource interface {
	// Read returns the current clipboard content and its classification.
	Read(ctx context.Context) (model.Snapshot, error)
}
