// Package hub fans view snapshots out to live subscribers of a session.
package hub

import (
	"log/slog"
	"sync"

	"github.com/skinguard/backend/internal/models"
)

// Hub manages per-session subscriptions. Subscribers receive every view
// published for the session they subscribed to.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan models.View]struct{} // sessionID -> set of channels
	logger      *slog.Logger
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[chan models.View]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for sessionID. The cancel function must
// be called when the subscriber goes away.
func (h *Hub) Subscribe(sessionID string) (<-chan models.View, func()) {
	ch := make(chan models.View, 16)
	h.mu.Lock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[chan models.View]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[sessionID], ch)
			if len(h.subscribers[sessionID]) == 0 {
				delete(h.subscribers, sessionID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish sends a view to all subscribers of sessionID. A subscriber whose
// buffer is full loses its oldest pending snapshot so that the latest one
// is always delivered.
func (h *Hub) Publish(sessionID string, v models.View) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[sessionID] {
		if !offer(ch, v) {
			h.logger.Warn("hub: coalesced views for slow subscriber", "session_id", sessionID)
		}
	}
}

// offer enqueues v, evicting stale snapshots while the buffer is full.
// It reports whether v went in without evicting anything.
func offer(ch chan models.View, v models.View) bool {
	evicted := false
	for {
		select {
		case ch <- v:
			return !evicted
		default:
		}
		select {
		case <-ch:
			evicted = true
		default:
		}
	}
}

// SubscriberCount returns the number of live subscribers for sessionID.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}
