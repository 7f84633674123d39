// Package lock provides a Redis-backed mutual exclusion across processes.
package lock

import (
	"context"
	"fmt"
	"time"

	"data_quest/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

type Locker interface {
	// Acquire returns common.ErrLockNotAcquired when another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

type Lease interface {
	// Release reports whether the lease was still held when released.
	Release(ctx context.Context) (bool, error)
}

type RedisLocker struct {
	rdb redis.Cmdable
}

func NewRedisLocker(rdb redis.Cmdable) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("RedisLocker.Acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, common.ErrLockNotAcquired)
	}
	return &redisLease{rdb: l.rdb, key: key, token: token}, nil
}

type redisLease struct {
	rdb   redis.Cmdable
	key   string
	token string
}

func (l *redisLease) Release(ctx context.Context) (bool, error) {
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return false, fmt.Errorf("redisLease.Release %s: %w", l.key, err)
	}
	return deleted == 1, nil
}

// Noop grants every request. Used when running without Redis.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) (Lease, error) {
	return noopLease{}, nil
}

type noopLease struct{}

func (noopLease) Release(context.Context) (bool, error) { return true, nil }
