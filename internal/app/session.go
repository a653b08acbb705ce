package app

import (
	"sync"
	"time"

	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/game"
)

// Event types pushed to session subscribers.
const (
	EventPhase     = "phase"
	EventTick      = "tick"
	EventCompleted = "completed"
)

// Event is one engine notification, shaped for transport.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// TickPayload carries the remaining seconds of the current question.
type TickPayload struct {
	TimeRemaining int `json:"timeRemaining"`
}

// CompletedPayload carries the final result of a round.
type CompletedPayload struct {
	Score   int  `json:"score"`
	Perfect bool `json:"perfect"`
}

// Session is one player's game: an engine plus the subscribers watching it.
type Session struct {
	id        string
	createdAt time.Time
	engine    *game.Engine

	mu          sync.Mutex
	subscribers map[chan Event]struct{}
	completions int // rounds completed so far
	savedRound  int // completion whose score was stored, 0 if none
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		id:          id,
		createdAt:   now,
		subscribers: make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Engine exposes the state machine driving this session.
func (s *Session) Engine() *game.Engine {
	return s.engine
}

// Subscribe returns a channel of engine events, primed with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 32)
	// Registration happens under the engine lock, so the snapshot is the
	// first event and every later transition follows it.
	s.engine.WithSnapshot(func(snap game.Snapshot) {
		s.mu.Lock()
		s.subscribers[ch] = struct{}{}
		ch <- Event{Type: EventPhase, Payload: snap}
		s.mu.Unlock()
	})

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) OnPhaseChange(snap game.Snapshot) {
	s.broadcast(Event{Type: EventPhase, Payload: snap})
}

func (s *Session) OnRoundCompleted(finalScore int, perfect bool) {
	s.mu.Lock()
	s.completions++
	s.mu.Unlock()
	s.broadcast(Event{Type: EventCompleted, Payload: CompletedPayload{Score: finalScore, Perfect: perfect}})
}

func (s *Session) OnTick(timeRemaining int) {
	s.broadcast(Event{Type: EventTick, Payload: TickPayload{TimeRemaining: timeRemaining}})
}

// broadcast never blocks the engine: a full subscriber loses its oldest event.
func (s *Session) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// claimScore reserves the completed round's score for saving. A round can be
// claimed once; releaseScore gives the claim back when the save fails.
func (s *Session) claimScore() (score, round int, err error) {
	s.engine.WithSnapshot(func(snap game.Snapshot) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case snap.Phase != game.PhaseCompleted:
			err = domain.ErrRoundNotCompleted
		case s.savedRound == s.completions:
			err = domain.ErrScoreAlreadySaved
		default:
			s.savedRound = s.completions
			score, round = snap.Score, s.completions
		}
	})
	return score, round, err
}

func (s *Session) releaseScore(round int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.savedRound == round {
		s.savedRound = 0
	}
}

func (s *Session) close() {
	s.engine.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}
