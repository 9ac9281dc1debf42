package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one activity record pushed to connected UI clients.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

const (
	EventItemAdded      = "item_added"
	EventItemRemoved    = "item_removed"
	EventRefreshStarted = "refresh_started"
	EventRefreshDone    = "refresh_done"
)

// Hub fans events out to subscribers. Slow subscribers drop events instead
// of blocking the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Publish(eventType, message string) {
	event := Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		Message: message,
		Time:    time.Now(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
