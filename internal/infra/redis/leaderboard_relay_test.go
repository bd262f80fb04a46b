package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"locus-quiz-service/internal/domain"
)

func TestLeaderboardRelayDeliversAcrossClients(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan domain.Leaderboard, 1)
	listener := NewLeaderboardRelay(newClient(mr))
	done := make(chan error, 1)
	go func() {
		done <- listener.Run(ctx, func(lb domain.Leaderboard) {
			select {
			case received <- lb:
			default:
			}
		})
	}()

	publisher := NewLeaderboardRelay(newClient(mr))
	want := domain.Leaderboard{
		QuizID:    "quiz-1",
		Status:    domain.StatusLive,
		Entries:   []domain.LeaderboardEntry{{Rank: 1, UserID: "u1", DisplayName: "Ann", Score: 3}},
		UpdatedAt: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
	}

	// the listener may not be subscribed yet; republish until it is
	deadline := time.After(2 * time.Second)
	for {
		if err := publisher.Publish(ctx, want); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case got := <-received:
			if got.QuizID != "quiz-1" || len(got.Entries) != 1 || got.Entries[0].Score != 3 || !got.UpdatedAt.Equal(want.UpdatedAt) {
				t.Fatalf("unexpected leaderboard %+v", got)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("run: %v", err)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("leaderboard not relayed")
		}
	}
}
