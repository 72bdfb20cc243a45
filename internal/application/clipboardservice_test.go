package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/fastclip/internal/application"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
)

func newClipboardService(t *testing.T) (*application.ClipboardService, *application.Hub) {
	t.Helper()
	store := newLoadedStore(t, &memEntryFile{})
	hub := application.NewHub(0)
	return application.NewClipboardService(store, hub, nil), hub
}

func TestClipboardService_Ping(t *testing.T) {
	svc, _ := newClipboardService(t)
	assert.Equal(t, "pong", svc.Ping())
}

func TestClipboardService_EntriesJSON(t *testing.T) {
	svc, _ := newClipboardService(t)
	ctx := context.Background()

	empty, err := svc.EntriesJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)

	_, err = svc.AddEntry(ctx, []byte("hi"), model.EntryKindText)
	require.NoError(t, err)

	raw, err := svc.EntriesJSON()
	require.NoError(t, err)

	var entries []model.Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, []byte("hi"), entries[0].Content)
	assert.Equal(t, model.EntryKindText, entries[0].Kind)
}

func TestClipboardService_AddEntryRejectsUnknownKind(t *testing.T) {
	svc, _ := newClipboardService(t)

	_, err := svc.AddEntry(context.Background(), []byte("x"), model.EntryKind("Audio"))
	assert.True(t, errors.Is(err, application.ErrInvalidOperation))
	assert.Empty(t, svc.Entries())
}

func TestClipboardService_EntryAndRemove(t *testing.T) {
	svc, _ := newClipboardService(t)
	ctx := context.Background()

	_, err := svc.Entry(0)
	assert.True(t, errors.Is(err, application.ErrEmptyHistory))

	_, err = svc.AddEntry(ctx, []byte("a"), model.EntryKindText)
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, []byte("b"), model.EntryKindText)
	require.NoError(t, err)

	got, err := svc.Entry(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got.Content)

	require.NoError(t, svc.RemoveEntry(ctx, 0))
	assert.Len(t, svc.Entries(), 1)

	err = svc.RemoveEntry(ctx, 5)
	assert.True(t, errors.Is(err, application.ErrInvalidOperation))
}

func TestClipboardService_SubscribeEntryReceivesNextChange(t *testing.T) {
	svc, hub := newClipboardService(t)

	got := make(chan []byte, 1)
	go func() {
		msg, err := svc.SubscribeEntry(context.Background())
		assert.NoError(t, err)
		got <- msg
	}()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, time.Millisecond)
	hub.Publish([]byte("next"))

	select {
	case msg := <-got:
		assert.Equal(t, []byte("next"), msg)
	case <-time.After(time.Second):
		t.Fatal("subscription not delivered")
	}
	assert.Equal(t, 0, hub.Len())
}

func TestClipboardService_UnsubscribeEntry(t *testing.T) {
	svc, hub := newClipboardService(t)

	sub := svc.OpenSubscription()
	assert.Equal(t, 1, hub.Len())
	assert.True(t, svc.UnsubscribeEntry(sub.ID()))
	assert.False(t, svc.UnsubscribeEntry(sub.ID()))
	assert.Equal(t, 0, hub.Len())
}
