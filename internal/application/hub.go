package application

import (
	"bytes"
	"context"
	"sync"
)

// DefaultHubCapacity is the per-subscription backlog used when none is set.
const DefaultHubCapacity = 16

// Hub fans raw clipboard changes out to subscribers. Subscriptions are
// one-shot: each delivers the first message published after it was registered
// and then releases itself. Publish never blocks; a subscriber whose backlog
// is full loses its oldest unread message.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	capacity int
	closed   bool
}

// NewHub creates a hub with the given per-subscription backlog. A
// non-positive capacity selects DefaultHubCapacity.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = DefaultHubCapacity
	}
	return &Hub{
		subs:     make(map[uint64]*Subscription),
		capacity: capacity,
	}
}

// Subscription is a pending one-shot registration on a Hub.
type Subscription struct {
	id  uint64
	hub *Hub
	ch  chan []byte
}

// ID identifies the subscription for Unsubscribe.
func (s *Subscription) ID() uint64 {
	return s.id
}

// Next waits for the first message published after the subscription was
// registered, then releases the subscription. It returns ctx.Err() if ctx is
// done first and ErrHubClosed if the hub shuts down.
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	defer s.hub.Unsubscribe(s.id)

	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, ErrHubClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe registers a subscription. Messages published before this call are
// never delivered to it.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:  h.nextID,
		hub: h,
		ch:  make(chan []byte, h.capacity),
	}
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe releases a pending subscription. It reports whether the
// subscription was still registered.
func (h *Hub) Unsubscribe(id uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[id]; !ok {
		return false
	}
	delete(h.subs, id)
	return true
}

// Publish hands a copy of msg to every registered subscription and returns how
// many it reached. Having no subscribers is not an error.
func (h *Hub) Publish(msg []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0
	}
	for _, sub := range h.subs {
		deliver(sub.ch, bytes.Clone(msg))
	}
	return len(h.subs)
}

// deliver enqueues msg, discarding the oldest queued message when full. It
// runs under the hub lock, so it is the only sender on ch.
func deliver(ch chan []byte, msg []byte) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Len returns the number of pending subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close wakes every pending subscriber with ErrHubClosed. Later publishes are
// dropped and later subscriptions fail immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
	}
}
