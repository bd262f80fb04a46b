package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

type liveHandler struct {
	live *app.LiveService
}

type registerRequest struct {
	DisplayName string `json:"displayName" validate:"max=64"`
}

type answerRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
}

type answerResponse struct {
	Result      domain.AnswerResult `json:"result"`
	Leaderboard domain.Leaderboard  `json:"leaderboard"`
}

func (h *liveHandler) register(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var req registerRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	participant, err := h.live.Register(r.Context(), chi.URLParam(r, "id"), user, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

func (h *liveHandler) start(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	quiz, err := h.live.Start(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *liveHandler) stop(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	lb, err := h.live.Stop(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *liveHandler) answer(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, lb, err := h.live.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), user.ID, domain.AnswerSubmission{
		QuestionID: req.QuestionID,
		Answer:     req.Answer,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answerResponse{Result: result, Leaderboard: lb})
}

func (h *liveHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := h.live.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
