package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"locus-quiz-service/internal/domain"
)

var validate = validator.New()

// DecodeImport parses and validates the JSON quiz-import schema.
func DecodeImport(raw []byte) (domain.ImportQuiz, error) {
	var in domain.ImportQuiz
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&in); err != nil {
		return domain.ImportQuiz{}, fmt.Errorf("%w: decode: %v", domain.ErrInvalidQuiz, err)
	}
	if err := validate.Struct(in); err != nil {
		return domain.ImportQuiz{}, fmt.Errorf("%w: %s", domain.ErrInvalidQuiz, describeValidation(err))
	}
	return in, nil
}

// FromImport converts the import schema into quiz content.
func FromImport(in domain.ImportQuiz) domain.Quiz {
	questions := make([]domain.Question, 0, len(in.Questions))
	for _, q := range in.Questions {
		questions = append(questions, domain.Question{
			ID:            q.ID,
			Text:          q.Text,
			Options:       append([]string(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
			Points:        q.Points,
		})
	}
	return domain.Quiz{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Questions:   questions,
	}
}

// normalizeQuestions trims content, assigns missing IDs and enforces the
// question invariants.
func normalizeQuestions(questions []domain.Question) ([]domain.Question, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", domain.ErrInvalidQuiz)
	}
	seen := make(map[string]struct{}, len(questions))
	out := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if strings.ContainsAny(q.ID, ".$") {
			return nil, fmt.Errorf("%w: question %d: id %q contains '.' or '$'", domain.ErrInvalidQuiz, i+1, q.ID)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}

		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			return nil, fmt.Errorf("%w: question %d has no text", domain.ErrInvalidQuiz, i+1)
		}
		if q.Points < 0 {
			return nil, fmt.Errorf("%w: question %d has negative points", domain.ErrInvalidQuiz, i+1)
		}

		options := make([]string, 0, len(q.Options))
		distinct := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				continue
			}
			key := strings.ToLower(opt)
			if _, dup := distinct[key]; dup {
				return nil, fmt.Errorf("%w: question %d repeats option %q", domain.ErrInvalidQuiz, i+1, opt)
			}
			distinct[key] = struct{}{}
			options = append(options, opt)
		}
		if len(options) < 2 {
			return nil, fmt.Errorf("%w: question %d needs at least two options", domain.ErrInvalidQuiz, i+1)
		}
		q.Options = options

		q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
		if _, ok := distinct[strings.ToLower(q.CorrectAnswer)]; !ok || q.CorrectAnswer == "" {
			return nil, fmt.Errorf("%w: question %d: correct answer %q is not one of the options", domain.ErrInvalidQuiz, i+1, q.CorrectAnswer)
		}
		out = append(out, q)
	}
	return out, nil
}

// answersMatch compares a submitted answer with the stored correct option.
func answersMatch(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
