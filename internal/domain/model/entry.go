package model

import (
	"bytes"
	"time"
)

// Entry is one decrypted clipboard capture.
type Entry struct {
	Content    []byte    `json:"content"`
	Kind       EntryKind `json:"kind"`
	CapturedAt string    `json:"captured_at"`
}

// NewEntry copies content and stamps the entry with at in RFC3339 form. Empty
// content is stored as a non-nil empty slice, the same shape a decoded entry
// has, so it marshals as "" rather than null.
func NewEntry(content []byte, kind EntryKind, at time.Time) Entry {
	c := make([]byte, len(content))
	copy(c, content)
	return Entry{
		Content:    c,
		Kind:       kind,
		CapturedAt: at.UTC().Format(time.RFC3339),
	}
}

// SameContent reports whether both entries carry byte-identical content.
func (e Entry) SameContent(other Entry) bool {
	return bytes.Equal(e.Content, other.Content)
}

// EncryptedEntry is the only form of an Entry written to durable storage.
// The capture timestamp travels inside the ciphertext.
type EncryptedEntry struct {
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	Kind       EntryKind `json:"kind"`
}

// Snapshot is what a clipboard source reports at a single point in time.
type Snapshot struct {
	Content []byte
	Kind    EntryKind
}
