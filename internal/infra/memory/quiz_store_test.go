package memory

import (
	"context"
	"errors"
	"testing"

	"locus-quiz-service/internal/domain"
)

func TestQuizStoreReplaceComparesStatus(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	quiz, _ := store.GetQuiz(ctx, "quiz-1")
	quiz.Status = domain.StatusLive
	if err := store.ReplaceQuiz(ctx, domain.StatusDraft, quiz); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if err := store.ReplaceQuiz(ctx, domain.StatusPublished, quiz); err != nil {
		t.Fatalf("replace: %v", err)
	}

	live, _ := store.ListByStatus(ctx, domain.StatusLive)
	if len(live) != 1 {
		t.Fatalf("expected one live quiz, got %d", len(live))
	}
}

func TestQuizStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)

	quiz, _ := store.GetQuiz(ctx, "quiz-1")
	quiz.Questions[0].Options[0] = "mutated"

	again, _ := store.GetQuiz(ctx, "quiz-1")
	if again.Questions[0].Options[0] != "3" {
		t.Fatalf("store leaked internal state: %+v", again.Questions[0])
	}
}

func TestHubStoreLifecycle(t *testing.T) {
	store := NewHubStore()

	hub := store.GetOrCreate("quiz-1")
	if hub == nil {
		t.Fatalf("expected hub")
	}
	if _, ok := store.Get("quiz-1"); !ok {
		t.Fatalf("expected hub present")
	}

	store.DeleteIfEmpty("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected hub removed when empty")
	}
}
