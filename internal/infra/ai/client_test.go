package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

func TestGenerateSendsPromptAndReturnsContent(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"title\":\"T\"}"}}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL + "/v1/", APIKey: "secret", Model: "test-model"})
	out, err := client.Generate(context.Background(), app.GenerateRequest{Title: "Cells", Text: "Mitochondria make ATP.", QuestionCount: 3})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if string(out) != `{"title":"T"}` {
		t.Fatalf("unexpected content %q", out)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json_object response format, got %+v", got.ResponseFormat)
	}
	if user := got.Messages[1].Content; !strings.Contains(user, "Write 3 questions") || !strings.Contains(user, "Mitochondria") {
		t.Fatalf("unexpected prompt %q", user)
	}
}

func TestGenerateWrapsUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{Endpoint: srv.URL})
	_, err := client.Generate(context.Background(), app.GenerateRequest{Text: "x", QuestionCount: 1})
	if !errors.Is(err, domain.ErrGenerationFailed) || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected wrapped upstream error, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer empty.Close()
	if _, err := NewClient(Config{Endpoint: empty.URL}).Generate(context.Background(), app.GenerateRequest{Text: "x"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected empty completion error, got %v", err)
	}

	if _, err := NewClient(Config{}).Generate(context.Background(), app.GenerateRequest{Text: "x"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected unconfigured error, got %v", err)
	}
}
