package model

import (
	"encoding/json"
	"fmt"
)

// EntryKind classifies clipboard content. It only affects how content is
// displayed downstream; storage and encryption treat all payloads alike.
type EntryKind string

const (
	EntryKindText  EntryKind = "Text"
	EntryKindImage EntryKind = "Image"
)

// ParseEntryKind converts a string into an EntryKind. Matching is exact; the
// wire form is capitalized.
func ParseEntryKind(s string) (EntryKind, error) {
	switch EntryKind(s) {
	case EntryKindText, EntryKindImage:
		return EntryKind(s), nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", s)
	}
}

// Valid reports whether k is one of the known kinds.
func (k EntryKind) Valid() bool {
	return k == EntryKindText || k == EntryKindImage
}

// UnmarshalJSON rejects kinds outside the closed set.
func (k *EntryKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEntryKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
