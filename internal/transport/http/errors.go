package http

import (
	"errors"
	"net/http"

	"github.com/google/logger"
	"locus-quiz-service/internal/domain"
)

// errBadRequest marks request bodies that could not be read or decoded.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuiz), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuizNotLive),
		errors.Is(err, domain.ErrNotLiveCapable),
		errors.Is(err, domain.ErrRegistrationClosed),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrNotAttemptable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("request failed: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}
