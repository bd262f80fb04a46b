package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

func TestQuizAnalyticsAggregates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Now)
	quiz, _ := env.quizzes.Import(ctx, alice, []byte(importJSON))
	_, _ = env.quizzes.Publish(ctx, alice, quiz.ID, nil)

	attempts := map[string][]domain.AnswerSubmission{
		"u1": {{QuestionID: "q1", Answer: "Paris"}, {QuestionID: "q2", Answer: "Rome"}},
		"u2": {{QuestionID: "q1", Answer: "Paris"}, {QuestionID: "q2", Answer: "Milan"}},
		"u3": {{QuestionID: "q1", Answer: "Nice"}},
	}
	for userID, answers := range attempts {
		if _, err := env.quizzes.SubmitAttempt(ctx, domain.User{ID: userID}, quiz.ID, answers); err != nil {
			t.Fatalf("attempt %s: %v", userID, err)
		}
	}

	if _, err := env.analytics.QuizAnalytics(ctx, bob, quiz.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	stats, err := env.analytics.QuizAnalytics(ctx, alice, quiz.ID)
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	if stats.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", stats.Attempts)
	}
	if stats.AveragePct != 50 || stats.MedianPct != 50 || stats.HighPct != 100 || stats.LowPct != 0 {
		t.Fatalf("unexpected score stats %+v", stats)
	}
	if stats.Distribution[0] != 1 || stats.Distribution[5] != 1 || stats.Distribution[9] != 1 {
		t.Fatalf("unexpected distribution %v", stats.Distribution)
	}
	if q1 := stats.Questions[0]; q1.Attempts != 3 || q1.Correct != 2 || math.Abs(q1.CorrectRate-2.0/3.0) > 1e-9 {
		t.Fatalf("unexpected q1 stats %+v", q1)
	}
	if q2 := stats.Questions[1]; q2.Attempts != 2 || q2.Correct != 1 {
		t.Fatalf("unanswered q2 should not count as an attempt: %+v", q2)
	}
	if stats.LastAttemptAt == nil {
		t.Fatalf("expected last attempt time")
	}
}

func TestAnalyzeWithoutResults(t *testing.T) {
	stats := app.Analyze(domain.Quiz{ID: "quiz-1", Questions: []domain.Question{{ID: "q1"}}}, nil)
	if stats.Attempts != 0 || len(stats.Questions) != 1 || stats.LastAttemptAt != nil {
		t.Fatalf("unexpected empty analytics %+v", stats)
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Now)
	quiz, _ := env.quizzes.Import(ctx, alice, []byte(importJSON))
	_, _ = env.quizzes.Import(ctx, alice, []byte(importJSON))
	_, _ = env.quizzes.Publish(ctx, alice, quiz.ID, nil)

	_, _ = env.quizzes.SubmitAttempt(ctx, bob, quiz.ID, []domain.AnswerSubmission{{QuestionID: "q1", Answer: "Paris"}})
	_ = env.results.SaveResults(ctx, domain.Result{ID: "live-1", QuizID: "other", UserID: bob.ID, Score: 2, MaxScore: 2, Live: true, Rank: 3, CompletedAt: time.Now()})

	authorView, err := env.analytics.Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if authorView.QuizzesCreated != 2 || authorView.QuizzesByState[domain.StatusDraft] != 1 || authorView.QuizzesByState[domain.StatusPublished] != 1 {
		t.Fatalf("unexpected author dashboard %+v", authorView)
	}

	takerView, err := env.analytics.Dashboard(ctx, bob)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if takerView.AttemptsTaken != 2 || takerView.AveragePct != 75 || takerView.BestLiveRank != 3 {
		t.Fatalf("unexpected taker dashboard %+v", takerView)
	}
	if len(takerView.RecentResults) != 2 || takerView.RecentResults[0].Answers != nil {
		t.Fatalf("unexpected recent results %+v", takerView.RecentResults)
	}

	if _, err := env.analytics.Dashboard(ctx, domain.User{}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
