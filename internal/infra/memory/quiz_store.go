package memory

import (
	"context"
	"fmt"
	"sync"

	"locus-quiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; ok {
		return fmt.Errorf("quiz %s already exists", quiz.ID)
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) ReplaceQuiz(_ context.Context, from domain.QuizStatus, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if current.Status != from {
		return fmt.Errorf("%w: quiz %s is %s, expected %s", domain.ErrInvalidTransition, quiz.ID, current.Status, from)
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *QuizStore) ListByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	return s.filter(func(q domain.Quiz) bool { return q.OwnerID == ownerID }), nil
}

func (s *QuizStore) ListByStatus(_ context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error) {
	return s.filter(func(q domain.Quiz) bool {
		for _, status := range statuses {
			if q.Status == status {
				return true
			}
		}
		return false
	}), nil
}

func (s *QuizStore) filter(keep func(domain.Quiz) bool) []domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if keep(quiz) {
			out = append(out, cloneQuiz(quiz))
		}
	}
	return out
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz
	if quiz.StartTime != nil {
		start := *quiz.StartTime
		out.StartTime = &start
	}
	out.Questions = make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	return out
}
