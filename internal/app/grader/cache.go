package grader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"data_quest/internal/domain/model"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type VerdictCache interface {
	Get(ctx context.Context, key string) (*model.Verdict, bool, error)
	Set(ctx context.Context, key string, v *model.Verdict, ttl time.Duration) error
}

// CacheKey addresses a verdict by domain, challenge and code content.
func CacheKey(domain model.Domain, challengeID, code string) string {
	return fmt.Sprintf("validation:%s:%s:%s", domain, challengeID, strconv.FormatUint(xxhash.Sum64String(code), 16))
}

type RedisVerdictCache struct {
	rdb redis.Cmdable
}

func NewRedisVerdictCache(rdb redis.Cmdable) *RedisVerdictCache {
	return &RedisVerdictCache{rdb: rdb}
}

func (c *RedisVerdictCache) Get(ctx context.Context, key string) (*model.Verdict, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("RedisVerdictCache.Get: %w", err)
	}
	var v model.Verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("RedisVerdictCache.Get decode: %w", err)
	}
	return &v, true, nil
}

func (c *RedisVerdictCache) Set(ctx context.Context, key string, v *model.Verdict, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("RedisVerdictCache.Set encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("RedisVerdictCache.Set: %w", err)
	}
	return nil
}

type memoryEntry struct {
	verdict   model.Verdict
	expiresAt time.Time
}

// MemoryVerdictCache keeps verdicts in process, for offline runs and tests.
type MemoryVerdictCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryVerdictCache() *MemoryVerdictCache {
	return &MemoryVerdictCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryVerdictCache) Get(_ context.Context, key string) (*model.Verdict, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	v := e.verdict
	return &v, true, nil
}

func (c *MemoryVerdictCache) Set(_ context.Context, key string, v *model.Verdict, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{verdict: *v, expiresAt: c.now().Add(ttl)}
	return nil
}

// Cached consults a VerdictCache before delegating. Cache failures are
// logged and never fail the grading call.
type Cached struct {
	inner  Grader
	cache  VerdictCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCached(inner Grader, cache VerdictCache, ttl time.Duration, logger *zap.Logger) *Cached {
	return &Cached{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (c *Cached) Grade(ctx context.Context, sub Submission) (*model.Verdict, error) {
	key := CacheKey(sub.Challenge.Domain(), sub.Challenge.ID, sub.Code)

	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("verdict cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return cached, nil
	}

	v, err := c.inner.Grade(ctx, sub)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, v, c.ttl); err != nil {
		c.logger.Warn("verdict cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
