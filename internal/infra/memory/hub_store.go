package memory

import (
	"sync"

	"locus-quiz-service/internal/app"
)

// HubStore is an in-memory implementation of app.HubRepository.
type HubStore struct {
	mu   sync.RWMutex
	hubs map[string]*app.Hub
}

func NewHubStore() *HubStore {
	return &HubStore{
		hubs: make(map[string]*app.Hub),
	}
}

func (s *HubStore) GetOrCreate(quizID string) *app.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hub, ok := s.hubs[quizID]; ok {
		return hub
	}
	hub := app.NewHub(quizID)
	s.hubs[quizID] = hub
	return hub
}

func (s *HubStore) Get(quizID string) (*app.Hub, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hub, ok := s.hubs[quizID]
	return hub, ok
}

func (s *HubStore) DeleteIfEmpty(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hub, ok := s.hubs[quizID]
	if !ok {
		return
	}
	if hub.IsEmpty() {
		delete(s.hubs, quizID)
	}
}
