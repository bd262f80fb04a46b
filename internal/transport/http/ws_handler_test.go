package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	srv := newTestServer(t)
	quiz := publishLiveQuiz(t, srv)
	token := signToken(t, testSecret, "carol", time.Now().Add(time.Hour))

	u := "ws" + srv.URL[len("http"):] + "/ws?quizId=" + quiz.ID + "&name=Carol&token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect joined event first.
	_, payload := readNext(conn, t, "joined")
	if payload["displayName"] != "Carol" {
		t.Fatalf("unexpected joined payload %v", payload)
	}

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId": "q1",
			"answer":     "Paris",
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	// Expect answerResult and a leaderboard carrying the new score.
	answerSeen := false
	scoredBoard := false
	for i := 0; i < 5 && !(answerSeen && scoredBoard); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = payload["correct"] == true
		case "leaderboard":
			if entries, ok := payload["entries"].([]any); ok && len(entries) == 1 {
				entry := entries[0].(map[string]any)
				scoredBoard = entry["score"] == float64(1)
			}
		}
	}
	if !answerSeen || !scoredBoard {
		t.Fatalf("expected answerResult and scored leaderboard, got answerResult=%v leaderboard=%v", answerSeen, scoredBoard)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	srv := newTestServer(t)
	quiz := publishLiveQuiz(t, srv)

	u := "ws" + srv.URL[len("http"):] + "/ws?quizId=" + quiz.ID
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestWebSocketRejectsLongName(t *testing.T) {
	srv := newTestServer(t)
	quiz := publishLiveQuiz(t, srv)
	token := signToken(t, testSecret, "carol", time.Now().Add(time.Hour))

	u := "ws" + srv.URL[len("http"):] + "/ws?quizId=" + quiz.ID + "&name=" + strings.Repeat("x", 65) + "&token=" + token
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail for an oversized name")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
