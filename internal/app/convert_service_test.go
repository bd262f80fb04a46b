package app_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

func TestConvertStoresDraftAndArchivesSource(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Now)
	gen := &stubGenerator{out: "Here you go:\n```json\n" + importJSON + "\n```"}
	archive := &memoryArchive{}
	svc := app.NewConvertService(gen, archive, env.quizzes)

	res, err := svc.Convert(ctx, alice, app.ConvertRequest{
		Title:      "Chapter 3",
		SourceName: "../notes/chapter3.txt",
		Text:       "Paris is the capital of France. Rome is the capital of Italy.",
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if res.Quiz.Title != "Chapter 3" || res.Quiz.Status != domain.StatusDraft || len(res.Quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", res.Quiz)
	}
	if gen.req.QuestionCount != 10 {
		t.Fatalf("expected default question count, got %d", gen.req.QuestionCount)
	}
	wantKey := "sources/" + alice.ID + "/" + res.Quiz.ID + "/chapter3.txt"
	if archive.key != wantKey || res.SourceArchive != "mem://"+wantKey {
		t.Fatalf("unexpected archive key %q location %q", archive.key, res.SourceArchive)
	}
	if !strings.Contains(archive.body, "Rome") {
		t.Fatalf("expected source text archived, got %q", archive.body)
	}
}

func TestConvertErrors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(time.Now)

	failing := app.NewConvertService(&stubGenerator{err: fmt.Errorf("upstream 500")}, nil, env.quizzes)
	if _, err := failing.Convert(ctx, alice, app.ConvertRequest{Text: "text"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}

	garbage := app.NewConvertService(&stubGenerator{out: "I cannot help with that."}, nil, env.quizzes)
	if _, err := garbage.Convert(ctx, alice, app.ConvertRequest{Text: "text"}); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz, got %v", err)
	}

	if _, err := garbage.Convert(ctx, alice, app.ConvertRequest{Text: "   "}); !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected empty text rejected, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                       `{"a":1}`,
		"```json\n{\"a\":1}\n```":       `{"a":1}`,
		"Sure! {\"a\":{\"b\":2}} done.": `{"a":{"b":2}}`,
	}
	for in, want := range cases {
		if got := string(app.ExtractJSON([]byte(in))); got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

type stubGenerator struct {
	out string
	err error
	req app.GenerateRequest
}

func (g *stubGenerator) Generate(_ context.Context, req app.GenerateRequest) ([]byte, error) {
	g.req = req
	if g.err != nil {
		return nil, g.err
	}
	return []byte(g.out), nil
}

type memoryArchive struct {
	key  string
	body string
}

func (a *memoryArchive) Archive(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	a.key = key
	a.body = string(data)
	return "mem://" + key, nil
}
