package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"nonsense-quiz-service/internal/domain"
	"nonsense-quiz-service/internal/game"
)

const (
	defaultScoreboardLimit = 10
	maxScoreboardLimit     = 100
)

// SessionRepository abstracts where open game sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(id string, create func(id string) *Session) *Session
	Get(id string) (*Session, bool)
	Delete(id string)
}

// ScoreStore persists leaderboard rows.
type ScoreStore interface {
	SaveScore(ctx context.Context, score domain.Score) (domain.Score, error)
	TopScores(ctx context.Context, limit int) ([]domain.Score, error)
}

// GameConfig holds the round parameters handed to every engine.
type GameConfig struct {
	RoundSize    int
	QuestionTime int
	AdvanceDelay time.Duration
}

// GameService hosts one round state machine per player session.
type GameService struct {
	sessions  SessionRepository
	supply    game.Supply
	scores    ScoreStore
	cfg       GameConfig
	scheduler game.Scheduler
	now       func() time.Time
}

func NewGameService(sessions SessionRepository, supply game.Supply, scores ScoreStore, cfg GameConfig) *GameService {
	return &GameService{
		sessions:  sessions,
		supply:    supply,
		scores:    scores,
		cfg:       cfg,
		scheduler: game.WallScheduler,
		now:       time.Now,
	}
}

// WithScheduler swaps the timer source for new sessions; used by tests.
func (s *GameService) WithScheduler(scheduler game.Scheduler) *GameService {
	s.scheduler = scheduler
	return s
}

// Open returns the session for id, creating it if needed. An empty id gets a fresh one.
func (s *GameService) Open(id string) *Session {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	return s.sessions.GetOrCreate(id, s.newSession)
}

func (s *GameService) newSession(id string) *Session {
	session := newSession(id, s.now())
	session.engine = game.NewEngine(s.supply, game.Options{
		SessionID:    id,
		RoundSize:    s.cfg.RoundSize,
		QuestionTime: s.cfg.QuestionTime,
		AdvanceDelay: s.cfg.AdvanceDelay,
		Listener:     session,
		Scheduler:    s.scheduler,
		Logger:       log.WithField("component", "engine"),
	})
	log.WithField("session", id).Debug("game session opened")
	return session
}

// Session looks up an open session.
func (s *GameService) Session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close cancels the session's timers, drops its subscribers and forgets it.
func (s *GameService) Close(id string) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return
	}
	session.close()
	s.sessions.Delete(id)
	log.WithField("session", id).Debug("game session closed")
}

// StartRound starts a fresh round in the session.
func (s *GameService) StartRound(ctx context.Context, id string) (game.Notice, error) {
	session, err := s.Session(id)
	if err != nil {
		return game.NoticeNone, err
	}
	return session.engine.StartRound(ctx)
}

// ContinueChallenge chains a new round after a perfect one.
func (s *GameService) ContinueChallenge(ctx context.Context, id string) (game.Notice, error) {
	session, err := s.Session(id)
	if err != nil {
		return game.NoticeNone, err
	}
	return session.engine.ContinueChallenge(ctx)
}

// SaveSessionScore stores the score of the session's completed round under userName.
// Each completed round is saved at most once; repeats get domain.ErrScoreAlreadySaved.
func (s *GameService) SaveSessionScore(ctx context.Context, id, userName string) (domain.Score, error) {
	session, err := s.Session(id)
	if err != nil {
		return domain.Score{}, err
	}
	score, round, err := session.claimScore()
	if err != nil {
		return domain.Score{}, err
	}
	saved, err := s.SaveScore(ctx, userName, score)
	if err != nil {
		session.releaseScore(round)
		return domain.Score{}, err
	}
	return saved, nil
}

// SaveScore validates and stores a leaderboard entry.
func (s *GameService) SaveScore(ctx context.Context, userName string, score int) (domain.Score, error) {
	in := scoreInput{UserName: strings.TrimSpace(userName), Score: score}
	if err := validateInput(in); err != nil {
		return domain.Score{}, err
	}
	saved, err := s.scores.SaveScore(ctx, domain.Score{
		UserName:  in.UserName,
		Score:     in.Score,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{"user": in.UserName, "score": in.Score}).Error("failed to save score")
		return domain.Score{}, fmt.Errorf("save score: %w", err)
	}
	return saved, nil
}

// Scoreboard returns the best scores, highest first, earliest first on ties.
func (s *GameService) Scoreboard(ctx context.Context, limit int) ([]domain.Score, error) {
	if limit <= 0 {
		limit = defaultScoreboardLimit
	}
	if limit > maxScoreboardLimit {
		limit = maxScoreboardLimit
	}
	return s.scores.TopScores(ctx, limit)
}
