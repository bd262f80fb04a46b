package app

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"locus-quiz-service/internal/domain"
)

const recentResultsLimit = 10

// AnalyticsService aggregates stored results into dashboards.
type AnalyticsService struct {
	quizzes QuizStore
	results ResultStore
}

func NewAnalyticsService(quizzes QuizStore, results ResultStore) *AnalyticsService {
	return &AnalyticsService{quizzes: quizzes, results: results}
}

// QuizAnalytics summarizes every result of a quiz for its owner.
func (s *AnalyticsService) QuizAnalytics(ctx context.Context, owner domain.User, quizID string) (domain.QuizAnalytics, error) {
	if owner.ID == "" {
		return domain.QuizAnalytics{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	if quiz.OwnerID != owner.ID {
		return domain.QuizAnalytics{}, domain.ErrForbidden
	}
	results, err := s.results.ListByQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizAnalytics{}, err
	}
	return Analyze(quiz, results), nil
}

// Analyze computes score statistics and per-question correctness.
func Analyze(quiz domain.Quiz, results []domain.Result) domain.QuizAnalytics {
	out := domain.QuizAnalytics{
		QuizID:    quiz.ID,
		Attempts:  len(results),
		Questions: make([]domain.QuestionStat, 0, len(quiz.Questions)),
	}

	index := make(map[string]int, len(quiz.Questions))
	for i, q := range quiz.Questions {
		index[q.ID] = i
		out.Questions = append(out.Questions, domain.QuestionStat{QuestionID: q.ID, Text: q.Text})
	}
	if len(results) == 0 {
		return out
	}

	pcts := make([]float64, 0, len(results))
	var sum float64
	for _, r := range results {
		pct := r.Percent()
		pcts = append(pcts, pct)
		sum += pct

		bucket := int(pct / 10)
		if bucket > 9 {
			bucket = 9
		}
		if bucket < 0 {
			bucket = 0
		}
		out.Distribution[bucket]++

		completed := r.CompletedAt
		if out.LastAttemptAt == nil || completed.After(*out.LastAttemptAt) {
			out.LastAttemptAt = &completed
		}

		for _, a := range r.Answers {
			i, ok := index[a.QuestionID]
			if !ok || (!a.Correct && strings.TrimSpace(a.Answer) == "") {
				continue
			}
			out.Questions[i].Attempts++
			if a.Correct {
				out.Questions[i].Correct++
			}
		}
	}
	for i := range out.Questions {
		if out.Questions[i].Attempts > 0 {
			out.Questions[i].CorrectRate = float64(out.Questions[i].Correct) / float64(out.Questions[i].Attempts)
		}
	}

	sort.Float64s(pcts)
	out.AveragePct = sum / float64(len(pcts))
	out.LowPct = pcts[0]
	out.HighPct = pcts[len(pcts)-1]
	mid := len(pcts) / 2
	if len(pcts)%2 == 0 {
		out.MedianPct = (pcts[mid-1] + pcts[mid]) / 2
	} else {
		out.MedianPct = pcts[mid]
	}
	return out
}

// Dashboard returns the overview of a user's authoring and attempts.
func (s *AnalyticsService) Dashboard(ctx context.Context, user domain.User) (domain.Dashboard, error) {
	if user.ID == "" {
		return domain.Dashboard{}, domain.ErrUnauthorized
	}

	var (
		authored []domain.Quiz
		results  []domain.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		authored, err = s.quizzes.ListByOwner(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		results, err = s.results.ListByUser(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	out := domain.Dashboard{
		UserID:         user.ID,
		QuizzesByState: make(map[domain.QuizStatus]int),
		QuizzesCreated: len(authored),
		AttemptsTaken:  len(results),
		RecentResults:  []domain.Result{},
	}
	for _, q := range authored {
		out.QuizzesByState[q.Status]++
	}

	var sum float64
	for _, r := range results {
		sum += r.Percent()
		if r.Live && r.Rank > 0 && (out.BestLiveRank == 0 || r.Rank < out.BestLiveRank) {
			out.BestLiveRank = r.Rank
		}
	}
	if len(results) > 0 {
		out.AveragePct = sum / float64(len(results))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	if len(results) > recentResultsLimit {
		results = results[:recentResultsLimit]
	}
	for _, r := range results {
		r.Answers = nil
		out.RecentResults = append(out.RecentResults, r)
	}
	return out, nil
}
