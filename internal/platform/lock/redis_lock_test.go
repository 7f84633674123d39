package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"data_quest/internal/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLocker(rdb), mr
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	l, _ := newLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "maintenance:test", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "maintenance:test", time.Minute); !errors.Is(err, common.ErrLockNotAcquired) {
		t.Fatalf("second Acquire err = %v, want ErrLockNotAcquired", err)
	}

	released, err := lease.Release(ctx)
	if err != nil || !released {
		t.Fatalf("Release = %v, %v", released, err)
	}
	again, err := l.Acquire(ctx, "maintenance:test", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	again.Release(ctx)
}

func TestRedisLeaseDoesNotReleaseForeignLock(t *testing.T) {
	l, mr := newLocker(t)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "maintenance:test", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	mr.FastForward(2 * time.Second)

	other, err := l.Acquire(ctx, "maintenance:test", time.Minute)
	if err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}

	released, err := lease.Release(ctx)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released {
		t.Error("expired lease released a lock it no longer owned")
	}
	if !mr.Exists("maintenance:test") {
		t.Error("the new holder's key was deleted")
	}
	other.Release(ctx)
}
