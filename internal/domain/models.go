package domain

import "time"

// QuizStatus is the lifecycle state of a quiz.
type QuizStatus string

const (
	StatusDraft     QuizStatus = "draft"
	StatusPublished QuizStatus = "published"
	StatusLive      QuizStatus = "live"
	StatusCompleted QuizStatus = "completed"
)

// CanTransition reports whether a quiz may move from s to next.
// published -> completed is allowed so a poll tick can catch up on a window
// that elapsed entirely between two ticks.
func (s QuizStatus) CanTransition(next QuizStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished
	case StatusPublished:
		return next == StatusLive || next == StatusCompleted
	case StatusLive:
		return next == StatusCompleted
	}
	return false
}

// Valid reports whether s is a known status.
func (s QuizStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusLive, StatusCompleted:
		return true
	}
	return false
}

// Question models a multiple choice question. CorrectAnswer holds the text of
// the correct option.
type Question struct {
	ID            string   `json:"id" bson:"id"`
	Text          string   `json:"text" bson:"text"`
	Options       []string `json:"options" bson:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty" bson:"correctAnswer"`
	Points        int      `json:"points,omitempty" bson:"points"` // defaults to 1 if zero
}

// Value returns the points awarded for a correct answer.
func (q Question) Value() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// Quiz is an authored collection of questions. Live-capable quizzes carry a
// start time and a duration.
type Quiz struct {
	ID              string     `json:"id" bson:"_id"`
	OwnerID         string     `json:"ownerId" bson:"ownerId"`
	Title           string     `json:"title" bson:"title"`
	Description     string     `json:"description" bson:"description"`
	Category        string     `json:"category" bson:"category"`
	Status          QuizStatus `json:"status" bson:"status"`
	Questions       []Question `json:"questions" bson:"questions"`
	IsLive          bool       `json:"isLive" bson:"isLive"`
	StartTime       *time.Time `json:"startTime,omitempty" bson:"startTime,omitempty"`
	DurationMinutes int        `json:"durationMinutes,omitempty" bson:"durationMinutes"`
	CreatedAt       time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// EndTime returns the end of the live window, or the zero time for quizzes
// without a schedule.
func (q Quiz) EndTime() time.Time {
	if q.StartTime == nil {
		return time.Time{}
	}
	return q.StartTime.Add(time.Duration(q.DurationMinutes) * time.Minute)
}

// InWindow reports whether now falls inside [start, end).
func (q Quiz) InWindow(now time.Time) bool {
	if !q.IsLive || q.StartTime == nil {
		return false
	}
	return !now.Before(*q.StartTime) && now.Before(q.EndTime())
}

// MaxScore sums the value of every question.
func (q Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Value()
	}
	return total
}

// FindQuestion returns the question with the given ID.
func (q Quiz) FindQuestion(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Public returns a copy safe to show to non-owners: correct answers stripped.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		question.Options = append([]string(nil), question.Options...)
		out.Questions[i] = question
	}
	return out
}

// Schedule configures the live window of a quiz on publish.
type Schedule struct {
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// ImportQuiz is the JSON quiz-import schema shared by uploads and AI conversion.
type ImportQuiz struct {
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Category    string           `json:"category" validate:"max=100"`
	Questions   []ImportQuestion `json:"questions" validate:"required,min=1,dive"`
}

// ImportQuestion is one entry of ImportQuiz.Questions.
type ImportQuestion struct {
	ID            string   `json:"id"`
	Text          string   `json:"text" validate:"required"`
	Options       []string `json:"options" validate:"required,min=2,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required"`
	Points        int      `json:"points,omitempty" validate:"min=0"`
}

// Participant is a live roster entry and its accumulated score.
type Participant struct {
	QuizID      string          `json:"quizId" bson:"quizId"`
	UserID      string          `json:"userId" bson:"userId"`
	DisplayName string          `json:"displayName" bson:"displayName"`
	Score       int             `json:"score" bson:"score"`
	Answered    map[string]bool `json:"answered" bson:"answered"`
	// Responses holds the submitted answer text per question.
	Responses   map[string]string `json:"responses,omitempty" bson:"responses"`
	JoinedAt    time.Time         `json:"joinedAt" bson:"joinedAt"`
	LastUpdated time.Time         `json:"lastUpdated" bson:"lastUpdated"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// Leaderboard captures the ordered scoreboard for a live quiz.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Status    QuizStatus         `json:"status"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// AnswerResult summarizes the outcome of a submission for a single user.
type AnswerResult struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// GradedAnswer is one graded answer inside a Result.
type GradedAnswer struct {
	QuestionID string `json:"questionId" bson:"questionId"`
	Answer     string `json:"answer" bson:"answer"`
	Correct    bool   `json:"correct" bson:"correct"`
	Awarded    int    `json:"awarded" bson:"awarded"`
}

// Result is the stored outcome of one attempt, self-paced or live.
type Result struct {
	ID             string         `json:"id" bson:"_id"`
	QuizID         string         `json:"quizId" bson:"quizId"`
	QuizTitle      string         `json:"quizTitle" bson:"quizTitle"`
	UserID         string         `json:"userId" bson:"userId"`
	DisplayName    string         `json:"displayName" bson:"displayName"`
	Score          int            `json:"score" bson:"score"`
	MaxScore       int            `json:"maxScore" bson:"maxScore"`
	CorrectCount   int            `json:"correctCount" bson:"correctCount"`
	TotalQuestions int            `json:"totalQuestions" bson:"totalQuestions"`
	Answers        []GradedAnswer `json:"answers,omitempty" bson:"answers"`
	Live           bool           `json:"live" bson:"live"`
	Rank           int            `json:"rank,omitempty" bson:"rank"`
	CompletedAt    time.Time      `json:"completedAt" bson:"completedAt"`
}

// Percent returns the score as a percentage of the maximum.
func (r Result) Percent() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.MaxScore)
}

// QuestionStat is the per-question correctness in QuizAnalytics.
type QuestionStat struct {
	QuestionID  string  `json:"questionId"`
	Text        string  `json:"text"`
	Attempts    int     `json:"attempts"`
	Correct     int     `json:"correct"`
	CorrectRate float64 `json:"correctRate"`
}

// QuizAnalytics aggregates every stored result of a quiz.
type QuizAnalytics struct {
	QuizID        string         `json:"quizId"`
	Attempts      int            `json:"attempts"`
	AveragePct    float64        `json:"averagePct"`
	MedianPct     float64        `json:"medianPct"`
	HighPct       float64        `json:"highPct"`
	LowPct        float64        `json:"lowPct"`
	Questions     []QuestionStat `json:"questions"`
	Distribution  [10]int        `json:"distribution"`
	LastAttemptAt *time.Time     `json:"lastAttemptAt,omitempty"`
}

// Dashboard is the per-user overview.
type Dashboard struct {
	UserID         string             `json:"userId"`
	QuizzesByState map[QuizStatus]int `json:"quizzesByState"`
	QuizzesCreated int                `json:"quizzesCreated"`
	AttemptsTaken  int                `json:"attemptsTaken"`
	AveragePct     float64            `json:"averagePct"`
	BestLiveRank   int                `json:"bestLiveRank,omitempty"`
	RecentResults  []Result           `json:"recentResults"`
}

// User is the authenticated principal derived from a bearer token.
type User struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}
