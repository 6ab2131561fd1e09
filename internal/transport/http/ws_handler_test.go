package http

import (
	"net/http"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"maipocket-quiz/internal/domain"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	var created createSessionResponse
	if status := do(t, http.MethodPost, srv.URL+"/sessions", map[string]any{"mode": "ranked", "kind": "visual"}, &created); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}

	u := "ws" + srv.URL[len("http"):] + "/sessions/" + created.SessionID + "/ws?device=phone-1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect state snapshots until the first question is playable.
	var st domain.SessionState
	for st.Phase != domain.PhasePlaying {
		msgType := readNext(conn, t, &st)
		if msgType != "state" {
			t.Fatalf("expected state, got %s", msgType)
		}
	}
	q, _ := st.CurrentQuestion()

	// Send a wrong answer: ranked without a pass ends the session.
	answer := map[string]any{
		"type":    "answer",
		"payload": map[string]any{"choice": "decoy-a"},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	answerSeen := false
	gameOver := false
	for i := 0; i < 20 && !(answerSeen && gameOver); i++ {
		var payload map[string]any
		switch readNext(conn, t, &payload) {
		case "answerResult":
			answerSeen = true
			if payload["outcome"] != string(domain.OutcomeGameOver) || payload["correctAnswer"] != q.CorrectAnswer {
				t.Fatalf("unexpected answer result %+v", payload)
			}
		case "state":
			if payload["phase"] == string(domain.PhaseGameOver) {
				gameOver = true
			}
		}
	}
	if !answerSeen || !gameOver {
		t.Fatalf("expected answerResult and game over, got answerResult=%v gameOver=%v", answerSeen, gameOver)
	}

	if err := conn.WriteJSON(map[string]any{"type": "finish"}); err != nil {
		t.Fatalf("write finish: %v", err)
	}
	for i := 0; i < 20; i++ {
		var payload map[string]any
		if readNext(conn, t, &payload) == "result" {
			if payload["highScore"] != float64(0) {
				t.Fatalf("unexpected result %+v", payload)
			}
			return
		}
	}
	t.Fatalf("expected result message")
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := newTestServer(t)

	var created createSessionResponse
	if status := do(t, http.MethodPost, srv.URL+"/sessions", map[string]any{"mode": "casual", "kind": "visual"}, &created); status != http.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}

	for name, path := range map[string]string{
		"missing":      "/sessions/missing/ws?device=phone-1",
		"other player": "/sessions/" + created.SessionID + "/ws?device=phone-2",
	} {
		u := "ws" + srv.URL[len("http"):] + path
		_, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			t.Fatalf("%s: expected dial to fail", name)
		}
		if resp == nil || resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %+v", name, resp)
		}
	}
}

func readNext(conn *websocket.Conn, t *testing.T, payload any) string {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if payload != nil && len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			t.Fatalf("decode %s payload: %v", msg.Type, err)
		}
	}
	return msg.Type
}
