package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/logger"
	"locus-quiz-service/internal/domain"
)

// DefaultPollInterval is how often the scheduler checks live windows.
const DefaultPollInterval = 30 * time.Second

// LiveService runs scheduled multi-participant quizzes: registration,
// real-time scoring, leaderboard fan-out and the start/stop schedule.
type LiveService struct {
	quizzes   QuizStore
	cache     QuizRepository
	roster    RosterStore
	results   ResultStore
	hubs      HubRepository
	publisher LeaderboardPublisher
	now       func() time.Time
}

// LiveOption customizes a LiveService.
type LiveOption func(*LiveService)

// WithPublisher routes leaderboard updates through p (e.g. a Redis relay)
// instead of delivering them to local hubs directly.
func WithPublisher(p LeaderboardPublisher) LiveOption {
	return func(s *LiveService) { s.publisher = p }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) LiveOption {
	return func(s *LiveService) { s.now = now }
}

func NewLiveService(quizzes QuizStore, cache QuizRepository, roster RosterStore, results ResultStore, hubs HubRepository, opts ...LiveOption) *LiveService {
	s := &LiveService{
		quizzes: quizzes,
		cache:   cache,
		roster:  roster,
		results: results,
		hubs:    hubs,
		now:     time.Now,
	}
	s.publisher = localPublisher{s}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickReport summarizes one scheduler pass.
type TickReport struct {
	Started   []string
	Completed []string
	Failed    int
}

// Register adds user to the roster of a live quiz, or refreshes their display
// name when already registered.
func (s *LiveService) Register(ctx context.Context, quizID string, user domain.User, displayName string) (domain.Participant, error) {
	if user.ID == "" {
		return domain.Participant{}, domain.ErrUnauthorized
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = user.Name
	}
	if displayName == "" {
		displayName = user.ID
	}

	now := s.now().UTC()
	participant, err := s.roster.Register(ctx, domain.Participant{
		QuizID:      quizID,
		UserID:      user.ID,
		DisplayName: displayName,
		Answered:    map[string]bool{},
		JoinedAt:    now,
		LastUpdated: now,
	}, registrationOpen)
	if err != nil {
		return domain.Participant{}, err
	}

	if quiz, err := s.cache.GetQuiz(ctx, quizID); err == nil {
		s.publishLeaderboard(ctx, quiz)
	}
	return participant, nil
}

func registrationOpen(quiz domain.Quiz) error {
	if !quiz.IsLive {
		return domain.ErrNotLiveCapable
	}
	switch quiz.Status {
	case domain.StatusPublished, domain.StatusLive:
		return nil
	case domain.StatusCompleted:
		return domain.ErrRegistrationClosed
	}
	return domain.ErrQuizNotFound
}

// SubmitAnswer scores one answer of a registered participant. Answers are
// accepted only while the quiz is live, inside its window, and once per
// question. A published quiz whose start time has passed stays closed until
// Tick or Start flips it.
func (s *LiveService) SubmitAnswer(ctx context.Context, quizID, userID string, submission domain.AnswerSubmission) (domain.AnswerResult, domain.Leaderboard, error) {
	quiz, err := s.cache.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AnswerResult{}, domain.Leaderboard{}, err
	}
	if !quiz.IsLive {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrNotLiveCapable
	}
	now := s.now().UTC()
	if quiz.Status != domain.StatusLive || !quiz.InWindow(now) {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrQuizNotLive
	}

	question, ok := quiz.FindQuestion(submission.QuestionID)
	if !ok {
		return domain.AnswerResult{}, domain.Leaderboard{}, domain.ErrQuestionNotFound
	}
	graded := domain.GradedAnswer{
		QuestionID: question.ID,
		Answer:     strings.TrimSpace(submission.Answer),
		Correct:    answersMatch(submission.Answer, question.CorrectAnswer),
	}
	if graded.Correct {
		graded.Awarded = question.Value()
	}

	participant, err := s.roster.RecordAnswer(ctx, quizID, userID, graded, now)
	if err != nil {
		return domain.AnswerResult{}, domain.Leaderboard{}, err
	}

	lb := s.publishLeaderboard(ctx, quiz)
	return domain.AnswerResult{
		QuestionID: question.ID,
		Correct:    graded.Correct,
		Awarded:    graded.Awarded,
		TotalScore: participant.Score,
	}, lb, nil
}

// Leaderboard returns the current standings of a live quiz.
func (s *LiveService) Leaderboard(ctx context.Context, quizID string) (domain.Leaderboard, error) {
	quiz, err := s.cache.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if !quiz.IsLive {
		return domain.Leaderboard{}, domain.ErrNotLiveCapable
	}
	participants, err := s.roster.ListParticipants(ctx, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return BuildLeaderboard(quiz, participants, s.now().UTC()), nil
}

// Subscribe returns a channel that receives leaderboard updates for a quiz,
// starting with the current snapshot. The caller must invoke the returned
// cancel function to avoid leaks.
func (s *LiveService) Subscribe(ctx context.Context, quizID string) (<-chan domain.Leaderboard, func(), error) {
	lb, err := s.Leaderboard(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}
	hub := s.hubs.GetOrCreate(quizID)
	ch, cancel := hub.subscribe(lb)
	return ch, func() {
		cancel()
		s.hubs.DeleteIfEmpty(quizID)
	}, nil
}

// Deliver hands a leaderboard to the local hub of its quiz, if any.
func (s *LiveService) Deliver(lb domain.Leaderboard) {
	if hub, ok := s.hubs.Get(lb.QuizID); ok {
		hub.broadcast(lb)
	}
}

// Start opens a published live quiz early. The window keeps its duration and
// begins now.
func (s *LiveService) Start(ctx context.Context, owner domain.User, quizID string) (domain.Quiz, error) {
	quiz, err := s.ownedLive(ctx, owner, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.Status.CanTransition(domain.StatusLive) {
		return domain.Quiz{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, quiz.Status, domain.StatusLive)
	}
	now := s.now().UTC()
	if !now.Before(quiz.EndTime()) {
		return domain.Quiz{}, fmt.Errorf("%w: live window already elapsed", domain.ErrQuizNotLive)
	}
	if now.Before(*quiz.StartTime) {
		quiz.StartTime = &now
	}
	if err := s.goLive(ctx, quiz, now); err != nil {
		return domain.Quiz{}, err
	}
	quiz.Status = domain.StatusLive
	return quiz, nil
}

// Stop ends a live quiz before its window closes and records the results.
func (s *LiveService) Stop(ctx context.Context, owner domain.User, quizID string) (domain.Leaderboard, error) {
	quiz, err := s.ownedLive(ctx, owner, quizID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	if quiz.Status != domain.StatusLive {
		return domain.Leaderboard{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, quiz.Status, domain.StatusCompleted)
	}
	return s.complete(ctx, quiz, s.now().UTC())
}

// Tick is one pass of the schedule check: it opens quizzes whose start time
// has passed and completes quizzes whose window has elapsed. Failures are
// logged and the pass continues; the next tick catches up on anything missed.
func (s *LiveService) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	quizzes, err := s.quizzes.ListByStatus(ctx, domain.StatusPublished, domain.StatusLive)
	if err != nil {
		return report, fmt.Errorf("list live quizzes: %w", err)
	}

	now := s.now().UTC()
	for _, quiz := range quizzes {
		if !quiz.IsLive || quiz.StartTime == nil {
			continue
		}
		switch {
		case !now.Before(quiz.EndTime()):
			if _, err := s.complete(ctx, quiz, now); err != nil {
				s.tickFailed(&report, quiz.ID, "complete", err)
				continue
			}
			report.Completed = append(report.Completed, quiz.ID)
		case quiz.Status == domain.StatusPublished && !now.Before(*quiz.StartTime):
			if err := s.goLive(ctx, quiz, now); err != nil {
				s.tickFailed(&report, quiz.ID, "start", err)
				continue
			}
			report.Started = append(report.Started, quiz.ID)
		}
	}
	return report, nil
}

// Run calls Tick every interval until ctx is canceled.
func (s *LiveService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("live scheduler polling every %s", interval)
	for {
		if report, err := s.Tick(ctx); err != nil {
			logger.Errorf("live tick: %v", err)
		} else if len(report.Started)+len(report.Completed) > 0 {
			logger.Infof("live tick: started=%v completed=%v failed=%d", report.Started, report.Completed, report.Failed)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *LiveService) tickFailed(report *TickReport, quizID, action string, err error) {
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Another instance got there first.
		logger.Infof("live tick: %s %s skipped: %v", action, quizID, err)
		return
	}
	report.Failed++
	logger.Errorf("live tick: %s %s: %v", action, quizID, err)
}

func (s *LiveService) goLive(ctx context.Context, quiz domain.Quiz, now time.Time) error {
	quiz.Status = domain.StatusLive
	quiz.UpdatedAt = now
	if err := s.quizzes.ReplaceQuiz(ctx, domain.StatusPublished, quiz); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, quiz.ID)
	logger.Infof("quiz %s is live until %s", quiz.ID, quiz.EndTime().Format(time.RFC3339))
	s.publishLeaderboard(ctx, quiz)
	return nil
}

// complete stores one ranked result per participant, then closes the quiz
// and broadcasts the final leaderboard. Results are saved before the status
// flip and keyed by LiveResultID, so a tick that retries after a failed save
// overwrites them.
func (s *LiveService) complete(ctx context.Context, quiz domain.Quiz, now time.Time) (domain.Leaderboard, error) {
	from := quiz.Status
	quiz.Status = domain.StatusCompleted
	quiz.UpdatedAt = now

	participants, err := s.roster.ListParticipants(ctx, quiz.ID)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("list participants: %w", err)
	}
	lb := BuildLeaderboard(quiz, participants, now)

	if results := liveResults(quiz, participants, lb, now); len(results) > 0 {
		if err := s.results.SaveResults(ctx, results...); err != nil {
			return domain.Leaderboard{}, fmt.Errorf("save live results: %w", err)
		}
	}
	if err := s.quizzes.ReplaceQuiz(ctx, from, quiz); err != nil {
		return domain.Leaderboard{}, err
	}
	s.cache.Invalidate(ctx, quiz.ID)

	if err := s.publisher.Publish(ctx, lb); err != nil {
		logger.Warningf("publish final leaderboard %s: %v", quiz.ID, err)
	}
	logger.Infof("quiz %s completed with %d participants", quiz.ID, len(participants))
	return lb, nil
}

// LiveResultID is the stable ID of a participant's live result.
func LiveResultID(quizID, userID string) string {
	return quizID + ":" + userID
}

func liveResults(quiz domain.Quiz, participants []domain.Participant, lb domain.Leaderboard, now time.Time) []domain.Result {
	byUser := make(map[string]domain.Participant, len(participants))
	for _, p := range participants {
		byUser[p.UserID] = p
	}

	results := make([]domain.Result, 0, len(lb.Entries))
	for _, entry := range lb.Entries {
		p := byUser[entry.UserID]
		result := domain.Result{
			ID:             LiveResultID(quiz.ID, p.UserID),
			QuizID:         quiz.ID,
			QuizTitle:      quiz.Title,
			UserID:         p.UserID,
			DisplayName:    p.DisplayName,
			Score:          p.Score,
			MaxScore:       quiz.MaxScore(),
			TotalQuestions: len(quiz.Questions),
			Answers:        make([]domain.GradedAnswer, 0, len(quiz.Questions)),
			Live:           true,
			Rank:           entry.Rank,
			CompletedAt:    now,
		}
		for _, q := range quiz.Questions {
			correct, answered := p.Answered[q.ID]
			if !answered {
				continue
			}
			graded := domain.GradedAnswer{QuestionID: q.ID, Answer: p.Responses[q.ID], Correct: correct}
			if correct {
				graded.Awarded = q.Value()
				result.CorrectCount++
			}
			result.Answers = append(result.Answers, graded)
		}
		results = append(results, result)
	}
	return results
}

func (s *LiveService) ownedLive(ctx context.Context, owner domain.User, quizID string) (domain.Quiz, error) {
	if owner.ID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != owner.ID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	if !quiz.IsLive || quiz.StartTime == nil {
		return domain.Quiz{}, domain.ErrNotLiveCapable
	}
	return quiz, nil
}

func (s *LiveService) publishLeaderboard(ctx context.Context, quiz domain.Quiz) domain.Leaderboard {
	participants, err := s.roster.ListParticipants(ctx, quiz.ID)
	if err != nil {
		logger.Warningf("leaderboard %s: %v", quiz.ID, err)
		return domain.Leaderboard{QuizID: quiz.ID, Status: quiz.Status, UpdatedAt: s.now().UTC()}
	}
	lb := BuildLeaderboard(quiz, participants, s.now().UTC())
	if err := s.publisher.Publish(ctx, lb); err != nil {
		logger.Warningf("publish leaderboard %s: %v", quiz.ID, err)
	}
	return lb
}

type localPublisher struct {
	s *LiveService
}

func (p localPublisher) Publish(_ context.Context, lb domain.Leaderboard) error {
	p.s.Deliver(lb)
	return nil
}
