package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

// RosterStore keeps one document per (quiz, user). Registration runs in a
// transaction, so the deployment must be a replica set.
type RosterStore struct {
	client       *mongo.Client
	quizzes      *mongo.Collection
	participants *mongo.Collection
}

type participantDoc struct {
	ID                 string `bson:"_id"`
	domain.Participant `bson:",inline"`
}

func NewRosterStore(client *mongo.Client, db *mongo.Database) *RosterStore {
	return &RosterStore{
		client:       client,
		quizzes:      db.Collection(QuizCollection),
		participants: db.Collection(ParticipantCollection),
	}
}

func participantID(quizID, userID string) string {
	return quizID + ":" + userID
}

func (s *RosterStore) Register(ctx context.Context, participant domain.Participant, check app.RegistrationCheck) (domain.Participant, error) {
	session, err := s.client.StartSession()
	if err != nil {
		return domain.Participant{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		quiz, err := findQuiz(sc, s.quizzes, participant.QuizID)
		if err != nil {
			return nil, err
		}
		if check != nil {
			if err := check(quiz); err != nil {
				return nil, err
			}
		}

		id := participantID(participant.QuizID, participant.UserID)
		update := bson.M{
			"$set": bson.M{"displayName": participant.DisplayName},
			"$setOnInsert": bson.M{
				"quizId":      participant.QuizID,
				"userId":      participant.UserID,
				"score":       0,
				"answered":    bson.M{},
				"responses":   bson.M{},
				"joinedAt":    participant.JoinedAt,
				"lastUpdated": participant.LastUpdated,
			},
		}
		opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
		var doc participantDoc
		if err := s.participants.FindOneAndUpdate(sc, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
			return nil, fmt.Errorf("upsert participant: %w", err)
		}
		return doc.Participant, nil
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return normalizeParticipant(result.(domain.Participant)), nil
}

func (s *RosterStore) RecordAnswer(ctx context.Context, quizID, userID string, answer domain.GradedAnswer, at time.Time) (domain.Participant, error) {
	id := participantID(quizID, userID)
	field := "answered." + answer.QuestionID
	filter := bson.M{"_id": id, field: bson.M{"$exists": false}}
	update := bson.M{
		"$set": bson.M{
			field:                            answer.Correct,
			"responses." + answer.QuestionID: answer.Answer,
			"lastUpdated":                    at,
		},
		"$inc": bson.M{"score": answer.Awarded},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc participantDoc
	err := s.participants.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return normalizeParticipant(doc.Participant), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Participant{}, fmt.Errorf("record answer: %w", err)
	}

	n, err := s.participants.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.Participant{}, fmt.Errorf("check participant: %w", err)
	}
	if n == 0 {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return domain.Participant{}, domain.ErrAlreadyAnswered
}

func (s *RosterStore) ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	cursor, err := s.participants.Find(ctx, bson.M{"quizId": quizID})
	if err != nil {
		return nil, fmt.Errorf("find participants: %w", err)
	}
	var docs []participantDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(docs))
	for _, doc := range docs {
		out = append(out, normalizeParticipant(doc.Participant))
	}
	return out, nil
}

func normalizeParticipant(p domain.Participant) domain.Participant {
	if p.Answered == nil {
		p.Answered = map[string]bool{}
	}
	if p.Responses == nil {
		p.Responses = map[string]string{}
	}
	return p
}
