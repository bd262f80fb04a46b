package app

import (
	"sync"

	"locus-quiz-service/internal/domain"
)

// Hub fans leaderboard updates of one live quiz out to local subscribers.
type Hub struct {
	id          string
	mu          sync.RWMutex
	last        *domain.Leaderboard
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewHub is exported for infrastructure layers that track hubs.
func NewHub(quizID string) *Hub {
	return &Hub{
		id:          quizID,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// IsEmpty reports whether the hub has no subscribers.
func (h *Hub) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers) == 0
}

// subscribe registers a subscriber and queues initial unless the hub already
// holds a fresher snapshot.
func (h *Hub) subscribe(initial domain.Leaderboard) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	if h.last == nil || initial.UpdatedAt.After(h.last.UpdatedAt) {
		h.last = &initial
	}
	// ch is new and empty, so the snapshot is queued before any broadcast
	ch <- *h.last
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// broadcast delivers lb to every subscriber. A full subscriber buffer drops
// its oldest update so slow clients never block the broadcaster.
func (h *Hub) broadcast(lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && lb.UpdatedAt.Before(h.last.UpdatedAt) {
		return
	}
	h.last = &lb
	for ch := range h.subscribers {
		select {
		case ch <- lb:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}
