package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"locus-quiz-service/internal/domain"
)

// ResultStore keeps graded attempts as JSONB rows in quiz_results.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResults(ctx context.Context, results ...domain.Result) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		batch.Queue(`
			INSERT INTO quiz_results (id, quiz_id, user_id, live, data, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, completed_at = EXCLUDED.completed_at`,
			r.ID, r.QuizID, r.UserID, r.Live, data, r.CompletedAt)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}
	return nil
}

func (s *ResultStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Result, error) {
	return s.list(ctx, `SELECT data FROM quiz_results WHERE quiz_id=$1 ORDER BY completed_at`, quizID)
}

func (s *ResultStore) ListByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.list(ctx, `SELECT data FROM quiz_results WHERE user_id=$1 ORDER BY completed_at DESC`, userID)
}

func (s *ResultStore) list(ctx context.Context, query string, arg string) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Result, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r domain.Result
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
