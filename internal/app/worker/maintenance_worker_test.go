package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/platform/lock"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newRedisLocker(t *testing.T) (*lock.RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return lock.NewRedisLocker(rdb), mr
}

func TestRunOnce_ReleasesLock(t *testing.T) {
	locker, mr := newRedisLocker(t)
	w := NewMaintenanceWorker(locker, time.Minute, zap.NewNop())

	runs := 0
	if err := w.Register(Task{Name: "rebuild", Schedule: "@every 1h", Run: func(ctx context.Context) error {
		runs++
		if !mr.Exists(lockPrefix + "rebuild") {
			t.Error("task ran without holding its lock")
		}
		return nil
	}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := w.RunOnce(context.Background(), "rebuild"); err != nil {
			t.Fatalf("RunOnce: %v", err)
		}
	}
	if runs != 2 {
		t.Errorf("runs = %d, want 2", runs)
	}
	if mr.Exists(lockPrefix + "rebuild") {
		t.Error("lock still held after task finished")
	}
}

func TestRunOnce_SkipsWhenLockHeld(t *testing.T) {
	locker, _ := newRedisLocker(t)
	w := NewMaintenanceWorker(locker, time.Minute, zap.NewNop())
	ran := false
	_ = w.Register(Task{Name: "expire", Schedule: "@every 5m", Run: func(ctx context.Context) error {
		ran = true
		return nil
	}})

	held, err := locker.Acquire(context.Background(), lockPrefix+"expire", time.Minute)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release(context.Background())

	if err := w.RunOnce(context.Background(), "expire"); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if ran {
		t.Error("task ran while another replica held the lock")
	}
}

func TestRunOnce_PropagatesTaskError(t *testing.T) {
	w := NewMaintenanceWorker(lock.Noop{}, time.Minute, zap.NewNop())
	boom := errors.New("boom")
	_ = w.Register(Task{Name: "broken", Run: func(ctx context.Context) error { return boom }})

	if err := w.RunOnce(context.Background(), "broken"); !errors.Is(err, boom) {
		t.Errorf("RunOnce = %v, want boom", err)
	}
	if err := w.RunOnce(context.Background(), "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("RunOnce(missing) = %v, want ErrNotFound", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	w := NewMaintenanceWorker(lock.Noop{}, time.Minute, zap.NewNop())
	noop := func(ctx context.Context) error { return nil }

	if err := w.Register(Task{Name: "bad", Schedule: "every tuesday", Run: noop}); err == nil {
		t.Error("invalid schedule accepted")
	}
	if err := w.Register(Task{Name: "ok", Schedule: "*/5 * * * *", Run: noop}); err != nil {
		t.Errorf("cron expression rejected: %v", err)
	}
	if err := w.Register(Task{Name: "ok", Run: noop}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate = %v, want ErrConflict", err)
	}
	if err := w.Register(Task{Schedule: "@every 1m"}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("empty task = %v, want ErrValidation", err)
	}
}

func TestStart_StopsOnCancel(t *testing.T) {
	w := NewMaintenanceWorker(lock.Noop{}, time.Minute, zap.NewNop())
	_ = w.Register(Task{Name: "idle", Schedule: "@every 1h", Run: func(ctx context.Context) error { return nil }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
