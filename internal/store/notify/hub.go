// Package notify fans committed-change notifications out to in-process
// subscribers for store drivers without a native notification channel.
package notify

import (
	"context"
	"sync"

	"github.com/muktadirmaashif/itcf-2026/internal/store"
)

const bufferSize = 64

// Hub delivers notifications to every live subscriber. A subscriber whose
// buffer is full misses notifications rather than blocking the writer; since
// a notification only ever triggers a full reload, the next one delivered
// brings it up to date.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan store.Notification
	nextID int
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan store.Notification)}
}

// Subscribe registers a subscriber until ctx is done, then closes its channel.
func (h *Hub) Subscribe(ctx context.Context) (<-chan store.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan store.Notification, bufferSize)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()
	return ch, nil
}

// Publish sends ns to every subscriber without blocking.
func (h *Hub) Publish(ns ...store.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		for _, n := range ns {
			select {
			case ch <- n:
			default:
			}
		}
	}
}

// Len returns the number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
