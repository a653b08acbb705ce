package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/game"
)

type WSHandler struct {
	games    *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService) *WSHandler {
	return &WSHandler{
		games: games,
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

type selectPayload struct {
	Slot int `json:"slot"`
}

type undoPayload struct {
	Position int `json:"position"`
}

type ratePayload struct {
	Rating domain.Rating `json:"rating"`
}

type saveScorePayload struct {
	UserName string `json:"userName"`
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type noticePayload struct {
	Notice game.Notice `json:"notice"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one game session per connection.
// Closing the connection closes the session and cancels its timers.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	session := h.games.Open(r.URL.Query().Get("sessionId"))
	sessionID := session.ID()
	defer h.games.Close(sessionID)
	logger := log.WithField("session", sessionID)

	events, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 32)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Single writer; after a write error it keeps draining so senders never block.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				logger.WithError(err).Debug("ws write error")
				failed = true
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: sessionPayload{SessionID: sessionID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		for _, msg := range h.handle(r.Context(), session, inbound) {
			send <- msg
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle applies one inbound message and returns the direct replies.
// State transitions reach the client through the session's event stream.
func (h *WSHandler) handle(ctx context.Context, session *app.Session, inbound inboundMessage) []outboundMessage[any] {
	engine := session.Engine()
	switch inbound.Type {
	case "start":
		notice, err := h.games.StartRound(ctx, session.ID())
		return startReplies(notice, err)
	case "continue":
		notice, err := h.games.ContinueChallenge(ctx, session.ID())
		return startReplies(notice, err)
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorReply("invalid select payload")
		}
		engine.SelectCharacter(payload.Slot)
		return stateReply(engine)
	case "undo":
		var payload undoPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorReply("invalid undo payload")
		}
		engine.UndoSelection(payload.Position)
		return stateReply(engine)
	case "submit":
		engine.SubmitAnswer()
	case "skip":
		engine.SkipQuestion()
	case "rate":
		var payload ratePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || !payload.Rating.Valid() {
			return errorReply("invalid rate payload")
		}
		engine.RateAndAdvance(payload.Rating)
	case "saveScore":
		var payload saveScorePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorReply("invalid saveScore payload")
		}
		score, err := h.games.SaveSessionScore(ctx, session.ID(), payload.UserName)
		if err != nil {
			return errorReply(err.Error())
		}
		return []outboundMessage[any]{{Type: "scoreSaved", Payload: score}}
	case "state":
		return stateReply(engine)
	default:
		return errorReply("unsupported message type")
	}
	return nil
}

func startReplies(notice game.Notice, err error) []outboundMessage[any] {
	var out []outboundMessage[any]
	if notice != game.NoticeNone {
		out = append(out, outboundMessage[any]{Type: "notice", Payload: noticePayload{Notice: notice}})
	}
	if err != nil {
		out = append(out, errorReply(err.Error())...)
	}
	return out
}

func stateReply(engine *game.Engine) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: "state", Payload: engine.Snapshot()}}
}

func errorReply(message string) []outboundMessage[any] {
	return []outboundMessage[any]{{Type: "error", Payload: errorPayload{Message: message}}}
}
