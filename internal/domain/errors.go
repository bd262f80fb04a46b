package domain

import "errors"

var (
	// ErrParticipantNotFound is returned when a user tries to act before registering.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuiz wraps validation failures of quiz content.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrForbidden is returned when a user acts on a quiz they do not own.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthorized is returned when no valid principal is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTransition rejects status changes outside the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrQuizNotLive is returned for answers outside the live window.
	ErrQuizNotLive = errors.New("quiz is not live")
	// ErrNotLiveCapable is returned for live operations on unscheduled quizzes.
	ErrNotLiveCapable = errors.New("quiz has no live schedule")
	// ErrRegistrationClosed is returned when registering for a completed quiz.
	ErrRegistrationClosed = errors.New("registration closed")
	// ErrAlreadyAnswered rejects a second answer to the same question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAttemptable is returned for self-paced attempts on draft or live quizzes.
	ErrNotAttemptable = errors.New("quiz cannot be attempted now")
	// ErrGenerationFailed wraps failures of the text-generation backend.
	ErrGenerationFailed = errors.New("quiz generation failed")
)
