package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/infra/memory"
)

type wsMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func newGameServer(t *testing.T, store *memory.Store) (*app.GameService, *httptest.Server) {
	t.Helper()
	supply := app.NewQuizSupply(memory.NewPoolCache(store, time.Minute), store, false)
	games := app.NewGameService(memory.NewSessionStore(), supply, store, app.GameConfig{
		RoundSize:    1,
		QuestionTime: 60,
		AdvanceDelay: 3 * time.Second,
	})
	wsHandler := NewWSHandler(games)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return games, server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketRoundFlow(t *testing.T) {
	store := memory.NewStore([]domain.Quiz{{ID: "q1", Question: "가나?", Answer: "가 나", Approved: true}})
	_, server := newGameServer(t, store)
	conn := dial(t, server, "?sessionId=s1")

	session := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "session" })
	if session.Payload["sessionId"] != "s1" {
		t.Fatalf("expected session s1, got %v", session.Payload["sessionId"])
	}

	send(t, conn, "start", nil)
	playing := readUntil(t, conn, isPhase("playing"))
	grid := stringsOf(playing.Payload["grid"])
	if len(grid) != 2+8 {
		t.Fatalf("expected 10 grid cells, got %d", len(grid))
	}

	for _, ch := range []string{"가", "나"} {
		send(t, conn, "select", map[string]any{"slot": indexOf(grid, ch)})
		readUntil(t, conn, func(m wsMessage) bool { return m.Type == "state" })
	}
	send(t, conn, "submit", nil)
	awaiting := readUntil(t, conn, isPhase("awaiting_advance"))
	if awaiting.Payload["outcome"] != "correct" {
		t.Fatalf("expected correct outcome, got %v", awaiting.Payload["outcome"])
	}

	send(t, conn, "rate", map[string]any{"rating": "like"})
	completed := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "completed" })
	if completed.Payload["score"] != float64(1) || completed.Payload["perfect"] != true {
		t.Fatalf("unexpected completion payload: %v", completed.Payload)
	}

	send(t, conn, "saveScore", map[string]any{"userName": "앨리스"})
	saved := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "scoreSaved" })
	if saved.Payload["userName"] != "앨리스" {
		t.Fatalf("unexpected saved score: %v", saved.Payload)
	}

	top, err := store.TopScores(context.Background(), 10)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(top) != 1 || top[0].Score != 1 {
		t.Fatalf("expected one saved score of 1, got %+v", top)
	}
}

func TestWebSocketRejectsEarlyScoreAndUnknownMessages(t *testing.T) {
	store := memory.NewStore([]domain.Quiz{{ID: "q1", Question: "가나?", Answer: "가나", Approved: true}})
	_, server := newGameServer(t, store)
	conn := dial(t, server, "")

	session := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "session" })
	if id, _ := session.Payload["sessionId"].(string); id == "" {
		t.Fatalf("expected a generated session id")
	}

	send(t, conn, "saveScore", map[string]any{"userName": "bob"})
	errMsg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if msg, _ := errMsg.Payload["message"].(string); !strings.Contains(msg, "not completed") {
		t.Fatalf("expected round-not-completed error, got %q", msg)
	}

	send(t, conn, "dance", nil)
	errMsg = readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if errMsg.Payload["message"] != "unsupported message type" {
		t.Fatalf("unexpected error: %v", errMsg.Payload)
	}
}

func TestWebSocketStartWithoutQuizzes(t *testing.T) {
	_, server := newGameServer(t, memory.NewStore(nil))
	conn := dial(t, server, "")

	send(t, conn, "start", nil)
	errMsg := readUntil(t, conn, func(m wsMessage) bool { return m.Type == "error" })
	if msg, _ := errMsg.Payload["message"].(string); !strings.Contains(msg, "no quizzes") {
		t.Fatalf("expected no-quizzes error, got %q", msg)
	}
}

func TestWebSocketDisconnectClosesSession(t *testing.T) {
	store := memory.NewStore([]domain.Quiz{{ID: "q1", Question: "가나?", Answer: "가나", Approved: true}})
	games, server := newGameServer(t, store)
	conn := dial(t, server, "?sessionId=gone")
	readUntil(t, conn, func(m wsMessage) bool { return m.Type == "session" })

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := games.Session("gone"); err != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected session to be closed after disconnect")
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips messages (ticks, intermediate phases) until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMessage) bool) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}

func isPhase(phase string) func(wsMessage) bool {
	return func(m wsMessage) bool {
		return m.Type == "phase" && m.Payload["phase"] == phase
	}
}

func stringsOf(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, _ := item.(string)
		out = append(out, s)
	}
	return out
}

func indexOf(items []string, want string) int {
	for i, item := range items {
		if item == want {
			return i
		}
	}
	return -1
}
