package memory

import (
	"context"
	"sync"

	"locus-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) SaveResults(_ context.Context, results ...domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
next:
	for _, r := range results {
		r.Answers = append([]domain.GradedAnswer(nil), r.Answers...)
		for i := range s.results {
			if s.results[i].ID == r.ID {
				s.results[i] = r
				continue next
			}
		}
		s.results = append(s.results, r)
	}
	return nil
}

func (s *ResultStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Result, error) {
	return s.filter(func(r domain.Result) bool { return r.QuizID == quizID }), nil
}

func (s *ResultStore) ListByUser(_ context.Context, userID string) ([]domain.Result, error) {
	return s.filter(func(r domain.Result) bool { return r.UserID == userID }), nil
}

func (s *ResultStore) filter(keep func(domain.Result) bool) []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0)
	for _, r := range s.results {
		if keep(r) {
			r.Answers = append([]domain.GradedAnswer(nil), r.Answers...)
			out = append(out, r)
		}
	}
	return out
}
