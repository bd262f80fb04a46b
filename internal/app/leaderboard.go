package app

import (
	"sort"
	"time"

	"locus-quiz-service/internal/domain"
)

// BuildLeaderboard orders participants by score desc, then by who reached
// their score first, then by name. Equal scores share a rank (1, 1, 3).
func BuildLeaderboard(quiz domain.Quiz, participants []domain.Participant, now time.Time) domain.Leaderboard {
	ordered := append([]domain.Participant(nil), participants...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		if !ordered[i].LastUpdated.Equal(ordered[j].LastUpdated) {
			return ordered[i].LastUpdated.Before(ordered[j].LastUpdated)
		}
		if ordered[i].DisplayName != ordered[j].DisplayName {
			return ordered[i].DisplayName < ordered[j].DisplayName
		}
		return ordered[i].UserID < ordered[j].UserID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for i, p := range ordered {
		rank := i + 1
		if i > 0 && p.Score == ordered[i-1].Score {
			rank = entries[i-1].Rank
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        rank,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
		})
	}

	return domain.Leaderboard{
		QuizID:    quiz.ID,
		Status:    quiz.Status,
		Entries:   entries,
		UpdatedAt: now,
	}
}
