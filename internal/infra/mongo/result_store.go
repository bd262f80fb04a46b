package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"locus-quiz-service/internal/domain"
)

// ResultStore keeps graded attempts, one document per result.
type ResultStore struct {
	results *mongo.Collection
}

func NewResultStore(db *mongo.Database) *ResultStore {
	return &ResultStore{results: db.Collection(ResultCollection)}
}

func (s *ResultStore) SaveResults(ctx context.Context, results ...domain.Result) error {
	if len(results) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(results))
	for _, r := range results {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": r.ID}).
			SetReplacement(r).
			SetUpsert(true))
	}
	if _, err := s.results.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

func (s *ResultStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Result, error) {
	return s.find(ctx, bson.M{"quizId": quizID}, options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}}))
}

func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "completedAt", Value: -1}}))
}

func (s *ResultStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.Result, error) {
	cursor, err := s.results.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find results: %w", err)
	}
	out := make([]domain.Result, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return out, nil
}
