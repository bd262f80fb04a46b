package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/logger"
	"github.com/redis/go-redis/v9"
	"locus-quiz-service/internal/domain"
)

const leaderboardChannelPrefix = "quiz:leaderboard:"

// LeaderboardRelay fans leaderboard updates out across instances.
// Publish sends on quiz:leaderboard:{quizID}; Run receives every quiz's
// channel and hands updates to the local hubs.
type LeaderboardRelay struct {
	client *redis.Client
}

func NewLeaderboardRelay(client *redis.Client) *LeaderboardRelay {
	return &LeaderboardRelay{client: client}
}

func (r *LeaderboardRelay) Publish(ctx context.Context, lb domain.Leaderboard) error {
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	return r.client.Publish(ctx, leaderboardChannelPrefix+lb.QuizID, data).Err()
}

// Run blocks until ctx is done, calling deliver for every received update.
func (r *LeaderboardRelay) Run(ctx context.Context, deliver func(domain.Leaderboard)) error {
	sub := r.client.PSubscribe(ctx, leaderboardChannelPrefix+"*")
	defer sub.Close()

	// wait for the subscription to be confirmed so no update is missed
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe leaderboards: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var lb domain.Leaderboard
			if err := json.Unmarshal([]byte(msg.Payload), &lb); err != nil {
				logger.Warningf("drop malformed leaderboard on %s: %v", msg.Channel, err)
				continue
			}
			if lb.QuizID == "" {
				lb.QuizID = strings.TrimPrefix(msg.Channel, leaderboardChannelPrefix)
			}
			deliver(lb)
		}
	}
}
