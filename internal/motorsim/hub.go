package motorsim

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-viewer queue length.
const DefaultBuffer = 100

// Hub fans each published message out to every current viewer. A viewer
// sees every message published after it subscribed, in publish order. A
// viewer that falls a full buffer behind is disconnected so that Publish
// never blocks. There is no replay of earlier messages.
type Hub struct {
	subs       map[chan string]struct{}
	mu         sync.Mutex
	done       chan struct{}
	bufferSize int
}

// NewHub creates a hub with the given per-viewer buffer. A non-positive size
// uses DefaultBuffer.
func NewHub(size int) *Hub {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Hub{
		subs:       make(map[chan string]struct{}),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// Subscribe registers a viewer. The channel is closed when ctx is cancelled,
// when the viewer lags too far behind, or when the hub closes.
func (h *Hub) Subscribe(ctx context.Context) <-chan string {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		ch := make(chan string)
		close(ch)
		return ch
	default:
	}

	sub := make(chan string, h.bufferSize)
	h.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			h.remove(sub)
		case <-h.done:
		}
	}()

	return sub
}

// Publish delivers msg to every viewer and reports how many were dropped
// for lagging.
func (h *Hub) Publish(msg string) (dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return 0
	default:
	}

	for sub := range h.subs {
		select {
		case sub <- msg:
		default:
			delete(h.subs, sub)
			close(sub)
			dropped++
		}
	}
	return dropped
}

// remove closes sub unless Publish or Close already did.
func (h *Hub) remove(sub chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub)
	}
}

// Close disconnects every viewer. Later subscriptions receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.done:
		return
	default:
	}

	close(h.done)
	for sub := range h.subs {
		close(sub)
	}
	h.subs = nil
}

// SubscriberCount returns the number of connected viewers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
