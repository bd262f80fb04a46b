package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
	"locus-quiz-service/internal/infra/memory"
)

var testSecret = []byte("test-secret")

const importJSON = `{
  "title": "Capitals",
  "category": "geography",
  "questions": [
    {"id": "q1", "text": "Capital of France?", "options": ["Paris", "Lyon"], "correctAnswer": "Paris"},
    {"id": "q2", "text": "Capital of Italy?", "options": ["Milan", "Rome"], "correctAnswer": "Rome"}
  ]
}`

type testServer struct {
	*httptest.Server
	quizzes *app.QuizService
	live    *app.LiveService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewQuizStore()
	results := memory.NewResultStore()
	cache := memory.NewQuizRepository(store, time.Minute)
	quizzes := app.NewQuizService(store, results, cache)
	live := app.NewLiveService(store, cache, memory.NewRosterStore(store), results, memory.NewHubStore())

	router := NewRouter(RouterConfig{
		Quizzes:   quizzes,
		Live:      live,
		Analytics: app.NewAnalyticsService(store, results),
		Auth:      NewAuthenticator(AuthConfig{Secret: testSecret, Issuer: "locus"}),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, quizzes: quizzes, live: live}
}

func signToken(t *testing.T, secret []byte, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "locus",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: strings.ToUpper(subject[:1]) + subject[1:],
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func TestQuizLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	alice := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))
	bob := signToken(t, testSecret, "bob", time.Now().Add(time.Hour))

	status, body := srv.do(t, http.MethodPost, "/api/quizzes/import", alice, importJSON)
	if status != http.StatusCreated {
		t.Fatalf("import: %d %s", status, body)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatalf("decode quiz: %v", err)
	}

	if status, _ := srv.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID, "", ""); status != http.StatusNotFound {
		t.Fatalf("expected draft hidden, got %d", status)
	}
	if status, body := srv.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/publish", alice, ""); status != http.StatusOK {
		t.Fatalf("publish: %d %s", status, body)
	}

	status, body = srv.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID, "", "")
	if status != http.StatusOK {
		t.Fatalf("get: %d %s", status, body)
	}
	if bytes.Contains(body, []byte("correctAnswer")) {
		t.Fatalf("public quiz leaked answers: %s", body)
	}

	status, body = srv.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/attempts", bob,
		`{"answers":[{"questionId":"q1","answer":"paris"},{"questionId":"q2","answer":"Milan"}]}`)
	if status != http.StatusCreated {
		t.Fatalf("attempt: %d %s", status, body)
	}
	var result domain.Result
	_ = json.Unmarshal(body, &result)
	if result.Score != 1 || result.MaxScore != 2 {
		t.Fatalf("unexpected result %+v", result)
	}

	if status, _ := srv.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID+"/analytics", bob, ""); status != http.StatusForbidden {
		t.Fatalf("expected forbidden analytics, got %d", status)
	}
	status, body = srv.do(t, http.MethodGet, "/api/quizzes/"+quiz.ID+"/analytics", alice, "")
	if status != http.StatusOK || !bytes.Contains(body, []byte(`"attempts":1`)) {
		t.Fatalf("analytics: %d %s", status, body)
	}

	if status, _ := srv.do(t, http.MethodGet, "/api/dashboard", "", ""); status != http.StatusUnauthorized {
		t.Fatalf("expected unauthorized dashboard, got %d", status)
	}
	if status, _ := srv.do(t, http.MethodDelete, "/api/quizzes/"+quiz.ID, bob, ""); status != http.StatusForbidden {
		t.Fatalf("expected bob cannot delete, got %d", status)
	}
}

func TestRejectsInvalidRequests(t *testing.T) {
	srv := newTestServer(t)
	alice := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))

	if status, _ := srv.do(t, http.MethodPost, "/api/quizzes/import", alice, `{"title": "x"}`); status != http.StatusBadRequest {
		t.Fatalf("expected bad request for invalid quiz, got %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/quizzes", alice, `{`); status != http.StatusBadRequest {
		t.Fatalf("expected bad request for malformed json, got %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/live/quiz-1/answers", alice, `{"questionId": "q1"}`); status != http.StatusBadRequest {
		t.Fatalf("expected bad request for missing answer, got %d", status)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/quizzes/convert", alice, `{"text": "x"}`); status != http.StatusNotImplemented {
		t.Fatalf("expected conversion disabled, got %d", status)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	srv := newTestServer(t)
	cases := map[string]string{
		"wrong secret": signToken(t, []byte("other"), "alice", time.Now().Add(time.Hour)),
		"expired":      signToken(t, testSecret, "alice", time.Now().Add(-time.Hour)),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		if status, _ := srv.do(t, http.MethodGet, "/api/quizzes/mine", token, ""); status != http.StatusUnauthorized {
			t.Fatalf("%s: expected unauthorized, got %d", name, status)
		}
	}
	if status, _ := srv.do(t, http.MethodGet, "/api/quizzes", "garbage", ""); status != http.StatusOK {
		t.Fatalf("expected anonymous catalogue access, got %d", status)
	}
}

func TestLiveOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	alice := signToken(t, testSecret, "alice", time.Now().Add(time.Hour))
	bob := signToken(t, testSecret, "bob", time.Now().Add(time.Hour))
	quiz := publishLiveQuiz(t, srv)

	if status, body := srv.do(t, http.MethodPost, "/api/live/"+quiz.ID+"/register", bob, `{"displayName":"Bobby"}`); status != http.StatusOK {
		t.Fatalf("register: %d %s", status, body)
	}
	status, body := srv.do(t, http.MethodPost, "/api/live/"+quiz.ID+"/answers", bob, `{"questionId":"q2","answer":"Rome"}`)
	if status != http.StatusOK {
		t.Fatalf("answer: %d %s", status, body)
	}
	var answered answerResponse
	_ = json.Unmarshal(body, &answered)
	if !answered.Result.Correct || answered.Leaderboard.Entries[0].DisplayName != "Bobby" {
		t.Fatalf("unexpected answer response %+v", answered)
	}
	if status, _ := srv.do(t, http.MethodPost, "/api/live/"+quiz.ID+"/answers", bob, `{"questionId":"q2","answer":"Rome"}`); status != http.StatusConflict {
		t.Fatalf("expected conflict on second answer, got %d", status)
	}

	if status, _ := srv.do(t, http.MethodPost, "/api/live/"+quiz.ID+"/stop", bob, ""); status != http.StatusForbidden {
		t.Fatalf("expected only owner can stop, got %d", status)
	}
	if status, body := srv.do(t, http.MethodPost, "/api/live/"+quiz.ID+"/stop", alice, ""); status != http.StatusOK {
		t.Fatalf("stop: %d %s", status, body)
	}

	lb, err := srv.live.Leaderboard(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if lb.Status != domain.StatusCompleted {
		t.Fatalf("expected completed leaderboard, got %s", lb.Status)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrUnauthorized:                            http.StatusUnauthorized,
		fmt.Errorf("wrap: %w", domain.ErrQuizNotFound):    http.StatusNotFound,
		fmt.Errorf("%w: bad", domain.ErrInvalidQuiz):      http.StatusBadRequest,
		domain.ErrAlreadyAnswered:                         http.StatusConflict,
		fmt.Errorf("%w: 500", domain.ErrGenerationFailed): http.StatusBadGateway,
		errors.New("database exploded"):                   http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

// publishLiveQuiz creates a live quiz owned by alice whose window is open now
// and runs a tick so it is live.
func publishLiveQuiz(t *testing.T, srv *testServer) domain.Quiz {
	t.Helper()
	ctx := context.Background()
	owner := domain.User{ID: "alice"}
	quiz, err := srv.quizzes.Import(ctx, owner, []byte(importJSON))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	quiz, err = srv.quizzes.Publish(ctx, owner, quiz.ID, &domain.Schedule{
		StartTime:       time.Now().Add(-time.Minute),
		DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report, err := srv.live.Tick(ctx); err != nil || len(report.Started) != 1 {
		t.Fatalf("tick: %+v %v", report, err)
	}
	quiz.Status = domain.StatusLive
	return quiz
}
