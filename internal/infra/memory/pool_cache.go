package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/domain"
)

const poolKey = "approved"

// PoolCache caches the approved quiz pool with TTL to avoid repeated DB hits.
type PoolCache struct {
	loader app.QuizPool
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	entry *cachedPool
}

type cachedPool struct {
	quizzes   []domain.Quiz
	expiresAt time.Time
}

func NewPoolCache(loader app.QuizPool, ttl time.Duration) *PoolCache {
	return &PoolCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) ApprovedQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if quizzes, ok := c.cached(c.clock()); ok {
		return quizzes, nil
	}

	result, err, _ := c.sf.Do(poolKey, func() (interface{}, error) {
		now := c.clock()
		if quizzes, ok := c.cached(now); ok {
			return quizzes, nil
		}

		quizzes, err := c.loader.ApprovedQuizzes(ctx)
		if err != nil {
			return nil, err
		}

		expiresAt := now.Add(c.ttlWithJitter())
		c.mu.Lock()
		c.entry = &cachedPool{quizzes: quizzes, expiresAt: expiresAt}
		c.mu.Unlock()
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Invalidate forgets the cached pool.
func (c *PoolCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	return nil
}

func (c *PoolCache) cached(now time.Time) ([]domain.Quiz, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry != nil && c.entry.expiresAt.After(now) {
		return c.entry.quizzes, true
	}
	return nil, false
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
