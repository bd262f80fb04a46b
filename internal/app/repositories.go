package app

import (
	"context"
	"io"
	"time"

	"locus-quiz-service/internal/domain"
)

// QuizStore persists authored quizzes (Mongo, Postgres, in-memory).
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ReplaceQuiz overwrites the stored quiz only while its status still equals
	// from; otherwise it returns domain.ErrInvalidTransition.
	ReplaceQuiz(ctx context.Context, from domain.QuizStatus, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	ListByStatus(ctx context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error)
}

// QuizRepository serves quiz content on the hot path (cache in front of a QuizStore).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// RegistrationCheck is evaluated against the stored quiz inside the roster
// transaction.
type RegistrationCheck func(quiz domain.Quiz) error

// RosterStore persists live participants.
type RosterStore interface {
	// Register reads the quiz, runs check and upserts the participant as one
	// atomic read-modify-write.
	Register(ctx context.Context, participant domain.Participant, check RegistrationCheck) (domain.Participant, error)
	// RecordAnswer marks answer.QuestionID answered, keeps the submitted text
	// and adds answer.Awarded to the score. A second answer for the same question returns domain.ErrAlreadyAnswered.
	RecordAnswer(ctx context.Context, quizID, userID string, answer domain.GradedAnswer, at time.Time) (domain.Participant, error)
	ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error)
}

// ResultStore persists graded attempts.
type ResultStore interface {
	// SaveResults upserts by Result.ID, so saving the same results again
	// replaces them.
	SaveResults(ctx context.Context, results ...domain.Result) error
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Result, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Result, error)
}

// HubRepository abstracts where live hubs are tracked (in-memory, Redis-marked).
type HubRepository interface {
	GetOrCreate(quizID string) *Hub
	Get(quizID string) (*Hub, bool)
	DeleteIfEmpty(quizID string)
}

// LeaderboardPublisher fans a leaderboard out to subscribers, possibly across instances.
type LeaderboardPublisher interface {
	Publish(ctx context.Context, lb domain.Leaderboard) error
}

// Generator turns extracted document text into quiz JSON.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// SourceArchive stores the source documents of converted quizzes.
type SourceArchive interface {
	Archive(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
