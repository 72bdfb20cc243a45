package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/fastclip/internal/application"
	"github.com/ericfisherdev/fastclip/internal/domain/model"
	"github.com/ericfisherdev/fastclip/internal/domain/port/driven"
)

// scriptedSource replays a fixed sequence of reads, then repeats the last one.
type scriptedSource struct {
	mu    sync.Mutex
	steps []sourceStep
	reads int
}

type sourceStep struct {
	content []byte
	err     error
}

func (s *scriptedSource) Read(_ context.Context) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.reads
	if idx >= len(s.steps) {
		idx = len(s.steps) - 1
	}
	s.reads++
	step := s.steps[idx]
	if step.err != nil {
		return model.Snapshot{}, step.err
	}
	return model.Snapshot{Content: step.content, Kind: model.EntryKindText}, nil
}

func (s *scriptedSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func text(s string) sourceStep { return sourceStep{content: []byte(s)} }

const testInterval = time.Millisecond

func TestChangeTracker_FirstReadIsAChange(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{text("hello")}}
	tracker := application.NewChangeTracker(src, testInterval, nil)

	snap, err := tracker.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), snap.Content)
	assert.Equal(t, []byte("hello"), tracker.LastSeen())
}

// Scenario: hello, repeated hello, then world resolves exactly once.
func TestChangeTracker_RepeatsAreNotChanges(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		text("hello"), text("hello"), text("hello"), text("hello"), text("world"),
	}}
	tracker := application.NewChangeTracker(src, testInterval, nil)
	ctx := context.Background()

	snap, err := tracker.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), snap.Content)

	snap, err = tracker.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), snap.Content)
	assert.Equal(t, 5, src.readCount())

	// "world" keeps repeating; the tracker must not resolve again.
	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = tracker.Next(waitCtx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Greater(t, src.readCount(), 5)
}

func TestChangeTracker_NoContentIsNotAnError(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		{err: driven.ErrNoContent},
		{err: errors.New("wl-paste: no seats")},
		{err: driven.ErrNoContent},
		text("after"),
	}}
	tracker := application.NewChangeTracker(src, testInterval, nil)

	snap, err := tracker.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("after"), snap.Content)
	assert.Equal(t, 4, src.readCount())
}

func TestChangeTracker_RevertWhileWaitingIsNotReported(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{
		text("a"), text("a"), {err: driven.ErrNoContent}, text("a"), text("b"),
	}}
	tracker := application.NewChangeTracker(src, testInterval, nil)
	ctx := context.Background()

	_, err := tracker.Next(ctx)
	require.NoError(t, err)

	snap, err := tracker.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), snap.Content)
}

func TestChangeTracker_PrimeSuppressesCurrentContent(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{text("existing"), text("existing"), text("new")}}
	tracker := application.NewChangeTracker(src, testInterval, nil)
	ctx := context.Background()

	tracker.Prime(ctx)
	assert.Equal(t, []byte("existing"), tracker.LastSeen())

	snap, err := tracker.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), snap.Content)
}

func TestChangeTracker_CancelWhileWaiting(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{text("x")}}
	tracker := application.NewChangeTracker(src, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := tracker.Next(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := tracker.Next(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("tracker did not return after cancellation")
	}
}

func TestChangeTracker_WaitsBetweenReads(t *testing.T) {
	src := &scriptedSource{steps: []sourceStep{text("x")}}
	tracker := application.NewChangeTracker(src, 20*time.Millisecond, nil)
	ctx := context.Background()

	_, err := tracker.Next(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 70*time.Millisecond)
	defer cancel()
	_, _ = tracker.Next(waitCtx)

	// Roughly one read per interval, never a busy loop.
	assert.LessOrEqual(t, src.readCount(), 6)
}
