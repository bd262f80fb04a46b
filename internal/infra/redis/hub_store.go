package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"locus-quiz-service/internal/app"
)

// HubStore is a Redis-aware implementation of app.HubRepository.
// Hubs stay in process so broadcasts reach local websocket clients; Redis
// only carries a liveness marker per quiz, which IsWatched reads.
type HubStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	hubs   map[string]*app.Hub
}

func NewHubStore(client *redis.Client, ttl time.Duration) *HubStore {
	return &HubStore{
		client: client,
		ttl:    ttl,
		hubs:   make(map[string]*app.Hub),
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(quizID), "1", s.ttl).Err()
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
		_ = s.client.Del(context.Background(), s.key(quizID)).Err()
	}
}

// IsWatched reports whether any instance currently has subscribers for quizID.
func (s *HubStore) IsWatched(ctx context.Context, quizID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(quizID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *HubStore) key(quizID string) string {
	return "quiz:live:" + quizID
}
