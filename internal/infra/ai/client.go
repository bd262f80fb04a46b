package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

const systemPrompt = `You write multiple-choice quizzes from study material.
Reply with a single JSON object and nothing else, shaped as:
{"title": string, "description": string, "category": string,
 "questions": [{"text": string, "options": [string, ...], "correctAnswer": string}]}
Every question has between 2 and 5 distinct options and correctAnswer is copied
verbatim from its options. Only ask about facts stated in the material.`

// Config points the client at an OpenAI-compatible API. Endpoint is the base
// URL (e.g. https://api.openai.com/v1); chat completions are posted below it.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client generates quiz JSON through the chat completions API.
type Client struct {
	model string
	api   *openai.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		return &Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{model: cfg.Model, api: openai.NewClientWithConfig(oc)}
}

func (c *Client) Generate(ctx context.Context, req app.GenerateRequest) ([]byte, error) {
	if c.api == nil {
		return nil, fmt.Errorf("%w: no generation endpoint configured", domain.ErrGenerationFailed)
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGenerationFailed, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrGenerationFailed)
	}
	return []byte(resp.Choices[0].Message.Content), nil
}

func userPrompt(req app.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d questions.\n", req.QuestionCount)
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	b.WriteString("\nMaterial:\n")
	b.WriteString(req.Text)
	return b.String()
}
