package http

import (
	"encoding/json"
	"net/http"

	"github.com/google/logger"
	"github.com/gorilla/websocket"
	"locus-quiz-service/internal/app"
	"locus-quiz-service/internal/domain"
)

type WSHandler struct {
	live     *app.LiveService
	auth     *Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(live *app.LiveService, auth *Authenticator) *WSHandler {
	return &WSHandler{
		live: live,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authenticates the caller, registers them for the live quiz and
// streams leaderboard updates while accepting answers on the same socket.
// Browsers cannot set headers on websocket requests, so the bearer token may
// also arrive as the token query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing quizId"})
		return
	}
	join := registerRequest{DisplayName: r.URL.Query().Get("name")}
	if err := validate.Struct(join); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name must be at most 64 characters"})
		return
	}
	tokenString := bearerToken(r)
	if tokenString == "" {
		tokenString = r.URL.Query().Get("token")
	}
	user, err := h.auth.ParseToken(tokenString)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warningf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	joined, err := h.live.Register(r.Context(), quizID, user, join.DisplayName)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.live.Subscribe(r.Context(), quizID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// joined goes out before any leaderboard update
	send <- outboundMessage[any]{Type: "joined", Payload: joined}

	// single writer goroutine; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warningf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			result, _, err := h.live.SubmitAnswer(r.Context(), quizID, user.ID, domain.AnswerSubmission{
				QuestionID: payload.QuestionID,
				Answer:     payload.Answer,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: result}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
