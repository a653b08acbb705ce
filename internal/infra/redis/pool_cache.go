package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"nonsense-quiz-service/internal/app"
	"nonsense-quiz-service/internal/domain"
)

// PoolKey holds the JSON-encoded approved quiz pool.
const PoolKey = "quiz:pool:approved"

// PoolCache caches the approved quiz pool in Redis and falls back to a loader on cache miss.
// The pool is shared by every service instance, so one instance approving a
// submission and calling Invalidate refreshes the pool for all of them.
type PoolCache struct {
	client *redis.Client
	loader app.QuizPool
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewPoolCache(client *redis.Client, loader app.QuizPool, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *PoolCache) ApprovedQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	if quizzes, ok := c.cached(ctx); ok {
		return quizzes, nil
	}

	result, err, _ := c.sf.Do(PoolKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quizzes, ok := c.cached(ctx); ok {
			return quizzes, nil
		}

		quizzes, err := c.loader.ApprovedQuizzes(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(quizzes)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, PoolKey, raw, c.ttlWithJitter()).Err(); err != nil {
			log.WithError(err).Warn("failed to cache quiz pool")
		}
		return quizzes, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Quiz), nil
}

// Invalidate drops the cached pool.
func (c *PoolCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, PoolKey).Err()
}

func (c *PoolCache) cached(ctx context.Context) ([]domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, PoolKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Warn("quiz pool cache read failed")
		}
		return nil, false
	}
	var quizzes []domain.Quiz
	if err := json.Unmarshal(raw, &quizzes); err != nil {
		log.WithError(err).Warn("discarding corrupt quiz pool cache")
		return nil, false
	}
	return quizzes, true
}

func (c *PoolCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
