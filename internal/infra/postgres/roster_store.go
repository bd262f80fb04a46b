package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

// RosterStore keeps live participants in live_participants. Registration
// holds a share lock on the quiz row so a concurrent completion cannot slip
// between the check and the insert.
type RosterStore struct {
	pool *pgxpool.Pool
}

func NewRosterStore(pool *pgxpool.Pool) *RosterStore {
	return &RosterStore{pool: pool}
}

const participantColumns = `quiz_id, user_id, display_name, score, answered, responses, joined_at, last_updated`

func (s *RosterStore) Register(ctx context.Context, participant domain.Participant, check app.RegistrationCheck) (domain.Participant, error) {
	var out domain.Participant
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1 FOR SHARE`, participant.QuizID).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrQuizNotFound
		}
		if err != nil {
			return fmt.Errorf("lock quiz: %w", err)
		}
		quiz, err := decodeQuiz(raw)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(quiz); err != nil {
				return err
			}
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO live_participants (quiz_id, user_id, display_name, score, answered, joined_at, last_updated)
			VALUES ($1, $2, $3, 0, '{}'::jsonb, $4, $5)
			ON CONFLICT (quiz_id, user_id) DO UPDATE SET display_name = EXCLUDED.display_name
			RETURNING `+participantColumns,
			participant.QuizID, participant.UserID, participant.DisplayName, participant.JoinedAt, participant.LastUpdated)
		out, err = scanParticipant(row)
		return err
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return out, nil
}

func (s *RosterStore) RecordAnswer(ctx context.Context, quizID, userID string, answer domain.GradedAnswer, at time.Time) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE live_participants
		SET answered = answered || jsonb_build_object($3::text, $4::boolean),
		    responses = responses || jsonb_build_object($3::text, $5::text),
		    score = score + $6,
		    last_updated = $7
		WHERE quiz_id=$1 AND user_id=$2 AND NOT (answered ? $3::text)
		RETURNING `+participantColumns,
		quizID, userID, answer.QuestionID, answer.Correct, answer.Answer, answer.Awarded, at)
	p, err := scanParticipant(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, err
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM live_participants WHERE quiz_id=$1 AND user_id=$2)`, quizID, userID).Scan(&exists); err != nil {
		return domain.Participant{}, fmt.Errorf("check participant: %w", err)
	}
	if !exists {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return domain.Participant{}, domain.ErrAlreadyAnswered
}

func (s *RosterStore) ListParticipants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+participantColumns+` FROM live_participants WHERE quiz_id=$1`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var (
		p         domain.Participant
		answered  []byte
		responses []byte
	)
	if err := row.Scan(&p.QuizID, &p.UserID, &p.DisplayName, &p.Score, &answered, &responses, &p.JoinedAt, &p.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Participant{}, err
		}
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	p.Answered = map[string]bool{}
	if len(answered) > 0 {
		if err := json.Unmarshal(answered, &p.Answered); err != nil {
			return domain.Participant{}, fmt.Errorf("unmarshal answered: %w", err)
		}
	}
	p.Responses = map[string]string{}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &p.Responses); err != nil {
			return domain.Participant{}, fmt.Errorf("unmarshal responses: %w", err)
		}
	}
	return p, nil
}
