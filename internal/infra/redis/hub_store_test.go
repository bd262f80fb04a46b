package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestHubStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewHubStore(newClient(mr), time.Minute)
	ctx := context.Background()

	hub := store.GetOrCreate("quiz-1")
	if !mr.Exists("quiz:live:quiz-1") {
		t.Fatalf("expected redis key to be set")
	}
	if again := store.GetOrCreate("quiz-1"); again != hub {
		t.Fatalf("expected the same hub")
	}
	if watched, err := store.IsWatched(ctx, "quiz-1"); err != nil || !watched {
		t.Fatalf("expected quiz watched, got %v %v", watched, err)
	}

	store.DeleteIfEmpty("quiz-1")
	if mr.Exists("quiz:live:quiz-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected hub removed")
	}
	if watched, _ := store.IsWatched(ctx, "quiz-1"); watched {
		t.Fatalf("expected quiz no longer watched")
	}
}
