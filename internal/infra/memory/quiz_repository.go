package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"locus-quiz-service/internal/domain"
)

// QuizLoader fetches quiz content from the backing store (Mongo, Postgres).
type QuizLoader interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes in process while live answers are scored.
// An entry never outlives the next schedule boundary of its quiz, so a cached
// copy is not served across a published->live or live->completed flip.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	entries map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.lookup(quizID); ok {
		return cloneQuiz(quiz), nil
	}

	v, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.lookup(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		r.store(quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return cloneQuiz(v.(domain.Quiz)), nil
}

// Invalidate drops the cached copy so the next read hits the loader.
func (r *QuizRepository) Invalidate(_ context.Context, quizID string) {
	r.mu.Lock()
	delete(r.entries, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) lookup(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) store(quiz domain.Quiz) {
	now := r.clock()
	expiresAt := now.Add(r.ttlWithJitter())
	if boundary, ok := nextBoundary(quiz, now); ok && boundary.Before(expiresAt) {
		expiresAt = boundary
	}
	if !expiresAt.After(now) {
		return
	}
	r.mu.Lock()
	r.entries[quiz.ID] = cachedQuiz{quiz: quiz, expiresAt: expiresAt}
	r.mu.Unlock()
}

// nextBoundary is the next scheduled status change of quiz after now.
func nextBoundary(quiz domain.Quiz, now time.Time) (time.Time, bool) {
	if !quiz.IsLive || quiz.StartTime == nil {
		return time.Time{}, false
	}
	switch quiz.Status {
	case domain.StatusPublished:
		if quiz.StartTime.After(now) {
			return *quiz.StartTime, true
		}
		return quiz.EndTime(), true
	case domain.StatusLive:
		return quiz.EndTime(), true
	}
	return time.Time{}, false
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations of quizzes loaded together
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
