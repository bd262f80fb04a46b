package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/logger"
	"locus-quiz-service/internal/domain"
)

const (
	defaultQuestionCount = 10
	maxQuestionCount     = 50
	maxSourceRunes       = 60000
)

// GenerateRequest is what a Generator receives.
type GenerateRequest struct {
	Title         string
	Category      string
	Text          string
	QuestionCount int
}

// ConvertRequest asks for a quiz generated from already-extracted document text.
type ConvertRequest struct {
	Title         string `json:"title"`
	Category      string `json:"category"`
	SourceName    string `json:"sourceName"`
	Text          string `json:"text"`
	QuestionCount int    `json:"questionCount"`
}

// ConvertResult is the stored draft and, when archived, where the source went.
type ConvertResult struct {
	Quiz          domain.Quiz `json:"quiz"`
	SourceArchive string      `json:"sourceArchive,omitempty"`
}

// ConvertService turns document text into draft quizzes via a Generator.
type ConvertService struct {
	generator Generator
	archive   SourceArchive
	quizzes   *QuizService
}

// NewConvertService wires the conversion flow; archive may be nil.
func NewConvertService(generator Generator, archive SourceArchive, quizzes *QuizService) *ConvertService {
	return &ConvertService{generator: generator, archive: archive, quizzes: quizzes}
}

// Convert generates, validates and stores a draft quiz from req.Text.
func (s *ConvertService) Convert(ctx context.Context, owner domain.User, req ConvertRequest) (ConvertResult, error) {
	if owner.ID == "" {
		return ConvertResult{}, domain.ErrUnauthorized
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ConvertResult{}, fmt.Errorf("%w: source text is empty", domain.ErrInvalidQuiz)
	}
	if runes := []rune(text); len(runes) > maxSourceRunes {
		text = string(runes[:maxSourceRunes])
	}
	count := req.QuestionCount
	if count <= 0 {
		count = defaultQuestionCount
	}
	if count > maxQuestionCount {
		count = maxQuestionCount
	}

	raw, err := s.generator.Generate(ctx, GenerateRequest{
		Title:         strings.TrimSpace(req.Title),
		Category:      strings.TrimSpace(req.Category),
		Text:          text,
		QuestionCount: count,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailed) {
			return ConvertResult{}, err
		}
		return ConvertResult{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}

	in, err := DecodeImport(ExtractJSON(raw))
	if err != nil {
		return ConvertResult{}, err
	}
	if title := strings.TrimSpace(req.Title); title != "" {
		in.Title = title
	}
	if category := strings.TrimSpace(req.Category); category != "" {
		in.Category = category
	}

	quiz, err := s.quizzes.Create(ctx, owner, FromImport(in))
	if err != nil {
		return ConvertResult{}, err
	}
	out := ConvertResult{Quiz: quiz}

	if s.archive != nil {
		name := path.Base(strings.TrimSpace(req.SourceName))
		if name == "" || name == "." || name == "/" {
			name = "source.txt"
		}
		key := path.Join("sources", owner.ID, quiz.ID, name)
		location, err := s.archive.Archive(ctx, key, strings.NewReader(req.Text), "text/plain; charset=utf-8")
		if err != nil {
			logger.Warningf("archive source of quiz %s: %v", quiz.ID, err)
		} else {
			out.SourceArchive = location
		}
	}
	return out, nil
}

// ExtractJSON strips markdown fences and surrounding prose from model output,
// returning the outermost JSON object.
func ExtractJSON(raw []byte) []byte {
	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("```")) {
		if nl := bytes.IndexByte(trimmed, '\n'); nl >= 0 {
			trimmed = trimmed[nl+1:]
		}
		if end := bytes.LastIndex(trimmed, []byte("```")); end >= 0 {
			trimmed = trimmed[:end]
		}
	}
	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return bytes.TrimSpace(trimmed)
	}
	return trimmed[start : end+1]
}
