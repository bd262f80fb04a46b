package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"locus-quiz-service/internal/domain"
)

// QuizService contains the authoring and self-paced attempt use cases.
type QuizService struct {
	quizzes QuizStore
	results ResultStore
	cache   QuizRepository
	now     func() time.Time
}

func NewQuizService(quizzes QuizStore, results ResultStore, cache QuizRepository) *QuizService {
	return NewQuizServiceWithClock(quizzes, results, cache, time.Now)
}

// NewQuizServiceWithClock is used by tests for deterministic timestamps.
func NewQuizServiceWithClock(quizzes QuizStore, results ResultStore, cache QuizRepository, now func() time.Time) *QuizService {
	return &QuizService{quizzes: quizzes, results: results, cache: cache, now: now}
}

// QuizPatch carries editable fields; nil fields are left untouched.
type QuizPatch struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	Questions   []domain.Question `json:"questions"`
}

// Create stores a new draft quiz owned by owner.
func (s *QuizService) Create(ctx context.Context, owner domain.User, draft domain.Quiz) (domain.Quiz, error) {
	if owner.ID == "" {
		return domain.Quiz{}, domain.ErrUnauthorized
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrInvalidQuiz)
	}
	questions, err := normalizeQuestions(draft.Questions)
	if err != nil {
		return domain.Quiz{}, err
	}

	now := s.now().UTC()
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Title:       draft.Title,
		Description: strings.TrimSpace(draft.Description),
		Category:    strings.TrimSpace(draft.Category),
		Status:      domain.StatusDraft,
		Questions:   questions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.quizzes.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	logger.Infof("quiz %s created by %s (%d questions)", quiz.ID, owner.ID, len(quiz.Questions))
	return quiz, nil
}

// Import decodes the JSON import schema and stores it as a draft.
func (s *QuizService) Import(ctx context.Context, owner domain.User, raw []byte) (domain.Quiz, error) {
	in, err := DecodeImport(raw)
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.Create(ctx, owner, FromImport(in))
}

// Get returns a quiz as seen by viewer. Drafts are owner-only and non-owners
// never see correct answers.
func (s *QuizService) Get(ctx context.Context, viewer domain.User, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if viewer.ID != "" && quiz.OwnerID == viewer.ID {
		return quiz, nil
	}
	if quiz.Status == domain.StatusDraft {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz.Public(), nil
}

// Update edits an owned quiz while it is a draft or published.
func (s *QuizService) Update(ctx context.Context, owner domain.User, quizID string, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, owner, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.Status != domain.StatusDraft && quiz.Status != domain.StatusPublished {
		return domain.Quiz{}, fmt.Errorf("%w: cannot edit a %s quiz", domain.ErrInvalidTransition, quiz.Status)
	}

	from := quiz.Status
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Quiz{}, fmt.Errorf("%w: title is required", domain.ErrInvalidQuiz)
		}
		quiz.Title = title
	}
	if patch.Description != nil {
		quiz.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		quiz.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Questions != nil {
		questions, err := normalizeQuestions(patch.Questions)
		if err != nil {
			return domain.Quiz{}, err
		}
		quiz.Questions = questions
	}
	quiz.UpdatedAt = s.now().UTC()

	if err := s.quizzes.ReplaceQuiz(ctx, from, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	return quiz, nil
}

// Delete removes an owned quiz unless it is currently live.
func (s *QuizService) Delete(ctx context.Context, owner domain.User, quizID string) error {
	quiz, err := s.owned(ctx, owner, quizID)
	if err != nil {
		return err
	}
	if quiz.Status == domain.StatusLive {
		return fmt.Errorf("%w: cannot delete a live quiz", domain.ErrInvalidTransition)
	}
	if err := s.quizzes.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	logger.Infof("quiz %s deleted by %s", quizID, owner.ID)
	return nil
}

// Publish moves a draft to published. A non-nil schedule makes the quiz a
// live quiz that the scheduler will start and stop.
func (s *QuizService) Publish(ctx context.Context, owner domain.User, quizID string, schedule *domain.Schedule) (domain.Quiz, error) {
	quiz, err := s.owned(ctx, owner, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.Status.CanTransition(domain.StatusPublished) {
		return domain.Quiz{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, quiz.Status, domain.StatusPublished)
	}
	if schedule != nil {
		if schedule.DurationMinutes <= 0 {
			return domain.Quiz{}, fmt.Errorf("%w: live duration must be positive", domain.ErrInvalidQuiz)
		}
		if schedule.StartTime.IsZero() {
			return domain.Quiz{}, fmt.Errorf("%w: live start time is required", domain.ErrInvalidQuiz)
		}
		start := schedule.StartTime.UTC()
		quiz.IsLive = true
		quiz.StartTime = &start
		quiz.DurationMinutes = schedule.DurationMinutes
	}
	quiz.Status = domain.StatusPublished
	quiz.UpdatedAt = s.now().UTC()

	if err := s.quizzes.ReplaceQuiz(ctx, domain.StatusDraft, quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.invalidate(ctx, quiz.ID)
	logger.Infof("quiz %s published (live=%t)", quiz.ID, quiz.IsLive)
	return quiz, nil
}

// ListMine returns every quiz owned by owner, newest first.
func (s *QuizService) ListMine(ctx context.Context, owner domain.User) ([]domain.Quiz, error) {
	if owner.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	quizzes, err := s.quizzes.ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(quizzes)
	return quizzes, nil
}

// ListPublished returns the public catalogue, optionally filtered by category.
func (s *QuizService) ListPublished(ctx context.Context, category string) ([]domain.Quiz, error) {
	quizzes, err := s.quizzes.ListByStatus(ctx, domain.StatusPublished, domain.StatusLive, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	out := make([]domain.Quiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		if category != "" && !strings.EqualFold(quiz.Category, category) {
			continue
		}
		out = append(out, quiz.Public())
	}
	sortNewestFirst(out)
	return out, nil
}

// SubmitAttempt grades a self-paced attempt and stores the result. Live
// quizzes can only be attempted this way once they are completed.
func (s *QuizService) SubmitAttempt(ctx context.Context, user domain.User, quizID string, answers []domain.AnswerSubmission) (domain.Result, error) {
	if user.ID == "" {
		return domain.Result{}, domain.ErrUnauthorized
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Result{}, err
	}
	switch {
	case quiz.Status == domain.StatusCompleted:
	case quiz.Status == domain.StatusPublished && !quiz.IsLive:
	default:
		return domain.Result{}, fmt.Errorf("%w: quiz is %s", domain.ErrNotAttemptable, quiz.Status)
	}

	result, err := gradeAttempt(quiz, answers)
	if err != nil {
		return domain.Result{}, err
	}
	result.ID = uuid.NewString()
	result.UserID = user.ID
	result.DisplayName = user.Name
	result.CompletedAt = s.now().UTC()

	if err := s.results.SaveResults(ctx, result); err != nil {
		return domain.Result{}, err
	}
	return result, nil
}

func (s *QuizService) owned(ctx context.Context, owner domain.User, quizID string) (domain.Quiz, error) {
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
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, quizID)
	}
}

// gradeAttempt scores answers against quiz. The first answer for a question
// wins; unanswered questions count as incorrect.
func gradeAttempt(quiz domain.Quiz, answers []domain.AnswerSubmission) (domain.Result, error) {
	submitted := make(map[string]string, len(answers))
	for _, a := range answers {
		if _, ok := quiz.FindQuestion(a.QuestionID); !ok {
			return domain.Result{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, a.QuestionID)
		}
		if _, dup := submitted[a.QuestionID]; !dup {
			submitted[a.QuestionID] = a.Answer
		}
	}

	result := domain.Result{
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		MaxScore:       quiz.MaxScore(),
		TotalQuestions: len(quiz.Questions),
		Answers:        make([]domain.GradedAnswer, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		answer, answered := submitted[q.ID]
		graded := domain.GradedAnswer{QuestionID: q.ID, Answer: answer}
		if answered && answersMatch(answer, q.CorrectAnswer) {
			graded.Correct = true
			graded.Awarded = q.Value()
			result.CorrectCount++
			result.Score += graded.Awarded
		}
		result.Answers = append(result.Answers, graded)
	}
	return result, nil
}

func sortNewestFirst(quizzes []domain.Quiz) {
	sort.SliceStable(quizzes, func(i, j int) bool {
		return quizzes[i].CreatedAt.After(quizzes[j].CreatedAt)
	})
}
