package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry_EmptyContentIsNonNil(t *testing.T) {
	at := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	for _, content := range [][]byte{nil, {}} {
		e := NewEntry(content, EntryKindText, at)
		require.NotNil(t, e.Content)
		assert.Empty(t, e.Content)

		data, err := json.Marshal(e)
		require.NoError(t, err)
		assert.JSONEq(t, `{"content":"","kind":"Text","captured_at":"2026-02-10T12:00:00Z"}`, string(data))
	}
}

func TestNewEntry_CopiesContent(t *testing.T) {
	src := []byte("abc")
	e := NewEntry(src, EntryKindImage, time.Time{})
	src[0] = 'x'

	assert.Equal(t, []byte("abc"), e.Content)
	assert.True(t, e.SameContent(Entry{Content: []byte("abc")}))
}
