package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"nonsense-quiz-service/internal/domain"
)

// maxCandidates caps how many of the newest approved quizzes a batch is drawn from.
const maxCandidates = 100

// QuizPool lists approved quizzes, newest first.
type QuizPool interface {
	ApprovedQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// RatingStore persists quiz ratings and the like/dislike counters they drive.
type RatingStore interface {
	RecordRating(ctx context.Context, rating domain.QuizRating) error
}

// QuizSupply hands batches of approved quizzes to game engines.
type QuizSupply struct {
	pool     QuizPool
	ratings  RatingStore
	weighted bool
	clock    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewQuizSupply builds a supply. With weighted set, batches are sampled by
// popularity instead of taken newest first.
func NewQuizSupply(pool QuizPool, ratings RatingStore, weighted bool) *QuizSupply {
	return &QuizSupply{
		pool:     pool,
		ratings:  ratings,
		weighted: weighted,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchQuizBatch returns up to count approved quizzes whose ids are not in excludeIDs.
func (s *QuizSupply) FetchQuizBatch(ctx context.Context, count int, excludeIDs []string) ([]domain.Quiz, error) {
	if count <= 0 {
		return nil, nil
	}
	all, err := s.pool.ApprovedQuizzes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load quiz pool: %w", err)
	}

	skip := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}
	window := min(count*3, maxCandidates)
	candidates := make([]domain.Quiz, 0, window)
	for _, q := range all {
		if !q.Approved {
			continue
		}
		if _, ok := skip[q.ID]; ok {
			continue
		}
		candidates = append(candidates, q)
		if len(candidates) == window {
			break
		}
	}

	if !s.weighted {
		return candidates[:min(count, len(candidates))], nil
	}
	return s.sampleWeighted(candidates, count), nil
}

// sampleWeighted draws count quizzes without replacement, each draw
// proportional to Quiz.Weight.
func (s *QuizSupply) sampleWeighted(candidates []domain.Quiz, count int) []domain.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool := append([]domain.Quiz(nil), candidates...)
	out := make([]domain.Quiz, 0, min(count, len(pool)))
	for len(out) < count && len(pool) > 0 {
		total := 0
		for _, q := range pool {
			total += q.Weight()
		}
		pick := s.rnd.Intn(total)
		idx := 0
		for i, q := range pool {
			pick -= q.Weight()
			if pick < 0 {
				idx = i
				break
			}
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return out
}

// RecordRating stores a rating given during sessionID.
func (s *QuizSupply) RecordRating(ctx context.Context, quizID string, rating domain.Rating, sessionID string) error {
	if !rating.Valid() {
		return fmt.Errorf("%w: unknown rating %q", domain.ErrInvalidInput, rating)
	}
	return s.ratings.RecordRating(ctx, domain.QuizRating{
		QuizID:    quizID,
		Rating:    rating,
		SessionID: sessionID,
		CreatedAt: s.clock().UTC(),
	})
}
