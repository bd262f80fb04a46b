package http

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

const maxImportBytes = 5 << 20

type quizHandler struct {
	quizzes   *app.QuizService
	analytics *app.AnalyticsService
	convert   *app.ConvertService
}

type attemptRequest struct {
	Answers []domain.AnswerSubmission `json:"answers" validate:"required,dive"`
}

func (h *quizHandler) list(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.ListPublished(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *quizHandler) get(w http.ResponseWriter, r *http.Request) {
	viewer, _ := UserFromContext(r.Context())
	quiz, err := h.quizzes.Get(r.Context(), viewer, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) mine(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	quizzes, err := h.quizzes.ListMine(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

func (h *quizHandler) create(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var draft domain.Quiz
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.Create(r.Context(), user, draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *quizHandler) importQuiz(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	raw, err := readBody(r, maxImportBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.Import(r.Context(), user, raw)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (h *quizHandler) convertText(w http.ResponseWriter, r *http.Request) {
	if h.convert == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "conversion is not configured"})
		return
	}
	user, _ := UserFromContext(r.Context())
	var req app.ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.convert.Convert(r.Context(), user, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *quizHandler) update(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var patch app.QuizPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	quiz, err := h.quizzes.Update(r.Context(), user, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) remove(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if err := h.quizzes.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publish accepts an empty body for a self-paced quiz or a schedule for a
// live one.
func (h *quizHandler) publish(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	raw, err := readBody(r, maxBodyBytes)
	if err != nil {
		writeError(w, err)
		return
	}
	var schedule *domain.Schedule
	if len(bytes.TrimSpace(raw)) > 0 {
		var s domain.Schedule
		if err := decodeBytes(raw, &s); err != nil {
			writeError(w, err)
			return
		}
		schedule = &s
	}
	quiz, err := h.quizzes.Publish(r.Context(), user, chi.URLParam(r, "id"), schedule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (h *quizHandler) attempt(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var req attemptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.quizzes.SubmitAttempt(r.Context(), user, chi.URLParam(r, "id"), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *quizHandler) quizAnalytics(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	stats, err := h.analytics.QuizAnalytics(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *quizHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	dash, err := h.analytics.Dashboard(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
