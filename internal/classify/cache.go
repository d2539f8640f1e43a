package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/spec-kit/sme-router/internal/persistence"
)

// cacheBackend is the storage behind CachedClassifier. Lookups are best
// effort; a backend failure is treated as a miss.
type cacheBackend interface {
	get(ctx context.Context, key string) (*Classification, bool)
	set(ctx context.Context, key string, value *Classification)
}

// CachedClassifier memoizes classification results so retries and duplicate
// submissions do not re-hit the model service.
type CachedClassifier struct {
	next    Classifier
	backend cacheBackend
	logger  *zap.Logger
}

// WithCache wraps next with a Redis-backed cache when redis is configured,
// falling back to an in-process cache otherwise.
func WithCache(next Classifier, rdb *persistence.Redis, ttl time.Duration, logger *zap.Logger) *CachedClassifier {
	var backend cacheBackend
	if rdb != nil {
		backend = &redisCache{rdb: rdb, ttl: ttl, logger: logger}
	} else {
		backend = &memoryCache{store: gocache.New(ttl, 2*ttl)}
	}
	return &CachedClassifier{next: next, backend: backend, logger: logger}
}

// Classify returns a cached result when one exists for the same requester
// and text, otherwise delegates and stores the outcome. Degraded results are
// never cached; the next attempt should retry the real classifier.
func (c *CachedClassifier) Classify(ctx context.Context, rawText, requesterID string) (*Classification, error) {
	key := cacheKey(requesterID, rawText)
	if cached, ok := c.backend.get(ctx, key); ok {
		return cached, nil
	}

	result, err := c.next.Classify(ctx, rawText, requesterID)
	if err != nil {
		return nil, err
	}
	if !result.Degraded {
		c.backend.set(ctx, key, result)
	}
	return result, nil
}

func cacheKey(requesterID, rawText string) string {
	sum := sha256.Sum256([]byte(requesterID + "\n" + rawText))
	return "classify:" + hex.EncodeToString(sum[:])
}

type memoryCache struct {
	store *gocache.Cache
}

func (m *memoryCache) get(_ context.Context, key string) (*Classification, bool) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, false
	}
	result, ok := v.(*Classification)
	return result, ok
}

func (m *memoryCache) set(_ context.Context, key string, value *Classification) {
	m.store.SetDefault(key, value)
}

type redisCache struct {
	rdb    *persistence.Redis
	ttl    time.Duration
	logger *zap.Logger
}

func (r *redisCache) get(ctx context.Context, key string) (*Classification, bool) {
	raw, err := r.rdb.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var result Classification
	if err := json.Unmarshal(raw, &result); err != nil {
		r.logger.Warn("corrupt cached classification", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &result, true
}

func (r *redisCache) set(ctx context.Context, key string, value *Classification) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.rdb.Client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("classification cache write failed", zap.Error(err))
	}
}
