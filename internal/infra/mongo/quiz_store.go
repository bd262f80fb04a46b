package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"locus-quiz-service/internal/domain"
)

// QuizStore keeps one document per quiz, keyed by quiz ID.
type QuizStore struct {
	quizzes      *mongo.Collection
	participants *mongo.Collection
}

func NewQuizStore(db *mongo.Database) *QuizStore {
	return &QuizStore{
		quizzes:      db.Collection(QuizCollection),
		participants: db.Collection(ParticipantCollection),
	}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	if _, err := s.quizzes.InsertOne(ctx, quiz); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return findQuiz(ctx, s.quizzes, quizID)
}

func (s *QuizStore) ReplaceQuiz(ctx context.Context, from domain.QuizStatus, quiz domain.Quiz) error {
	res, err := s.quizzes.ReplaceOne(ctx, bson.M{"_id": quiz.ID, "status": from}, quiz)
	if err != nil {
		return fmt.Errorf("replace quiz: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}
	current, err := findQuiz(ctx, s.quizzes, quiz.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: quiz %s is %s, expected %s", domain.ErrInvalidTransition, quiz.ID, current.Status, from)
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.quizzes.DeleteOne(ctx, bson.M{"_id": quizID})
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrQuizNotFound
	}
	if _, err := s.participants.DeleteMany(ctx, bson.M{"quizId": quizID}); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	return nil
}

func (s *QuizStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	return s.find(ctx, bson.M{"ownerId": ownerID})
}

func (s *QuizStore) ListByStatus(ctx context.Context, statuses ...domain.QuizStatus) ([]domain.Quiz, error) {
	return s.find(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (s *QuizStore) find(ctx context.Context, filter bson.M) ([]domain.Quiz, error) {
	cursor, err := s.quizzes.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, fmt.Errorf("find quizzes: %w", err)
	}
	out := make([]domain.Quiz, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode quizzes: %w", err)
	}
	return out, nil
}

func findQuiz(ctx context.Context, coll *mongo.Collection, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := coll.FindOne(ctx, bson.M{"_id": quizID}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}
