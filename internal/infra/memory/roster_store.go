package memory

import (
	"context"
	"sync"
	"time"

	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

// RosterStore is an in-memory implementation of app.RosterStore. Registration
// checks run against the QuizStore under the roster lock.
type RosterStore struct {
	quizzes *QuizStore

	mu           sync.Mutex
	participants map[string]map[string]*domain.Participant
}

func NewRosterStore(quizzes *QuizStore) *RosterStore {
	return &RosterStore{
		quizzes:      quizzes,
		participants: make(map[string]map[string]*domain.Participant),
	}
}

func (s *RosterStore) Register(ctx context.Context, participant domain.Participant, check app.RegistrationCheck) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, err := s.quizzes.GetQuiz(ctx, participant.QuizID)
	if err != nil {
		return domain.Participant{}, err
	}
	if check != nil {
		if err := check(quiz); err != nil {
			return domain.Participant{}, err
		}
	}

	roster, ok := s.participants[participant.QuizID]
	if !ok {
		roster = make(map[string]*domain.Participant)
		s.participants[participant.QuizID] = roster
	}
	if existing, ok := roster[participant.UserID]; ok {
		existing.DisplayName = participant.DisplayName
		return cloneParticipant(*existing), nil
	}
	stored := cloneParticipant(participant)
	roster[participant.UserID] = &stored
	return cloneParticipant(stored), nil
}

func (s *RosterStore) RecordAnswer(_ context.Context, quizID, userID string, answer domain.GradedAnswer, at time.Time) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[quizID][userID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if _, answered := participant.Answered[answer.QuestionID]; answered {
		return domain.Participant{}, domain.ErrAlreadyAnswered
	}
	participant.Answered[answer.QuestionID] = answer.Correct
	participant.Responses[answer.QuestionID] = answer.Answer
	participant.Score += answer.Awarded
	participant.LastUpdated = at
	return cloneParticipant(*participant), nil
}

func (s *RosterStore) ListParticipants(_ context.Context, quizID string) ([]domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.participants[quizID]))
	for _, p := range s.participants[quizID] {
		out = append(out, cloneParticipant(*p))
	}
	return out, nil
}

func cloneParticipant(p domain.Participant) domain.Participant {
	answered := make(map[string]bool, len(p.Answered))
	for k, v := range p.Answered {
		answered[k] = v
	}
	responses := make(map[string]string, len(p.Responses))
	for k, v := range p.Responses {
		responses[k] = v
	}
	p.Answered = answered
	p.Responses = responses
	return p
}
