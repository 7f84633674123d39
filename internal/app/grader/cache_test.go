package grader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"data_quest/internal/domain/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey(model.DomainSQL, "select-crew", "SELECT 1")
	b := CacheKey(model.DomainSQL, "select-crew", "SELECT 1")
	c := CacheKey(model.DomainSQL, "select-crew", "SELECT 2")
	d := CacheKey(model.DomainPython, "select-crew", "SELECT 1")

	if a != b {
		t.Errorf("identical input produced different keys: %q vs %q", a, b)
	}
	if a == c || a == d {
		t.Errorf("distinct input collided: %q %q %q", a, c, d)
	}
	if !strings.HasPrefix(a, "validation:sql:select-crew:") {
		t.Errorf("key = %q", a)
	}
}

func TestRedisVerdictCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	cache := NewRedisVerdictCache(rdb)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v", ok, err)
	}

	v := &model.Verdict{Correct: true, CorrectnessScore: 90, Hints: []string{"a"}}
	if err := cache.Set(ctx, "k", v, 24*time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v", ok, err)
	}
	if got.CorrectnessScore != 90 || !got.Correct || len(got.Hints) != 1 {
		t.Errorf("cached verdict = %+v", got)
	}
	if ttl := mr.TTL("k"); ttl != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", ttl)
	}

	mr.FastForward(25 * time.Hour)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoryVerdictCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryVerdictCache()
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	_ = cache.Set(ctx, "k", &model.Verdict{CorrectnessScore: 10}, time.Hour)
	if _, ok, _ := cache.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	now = now.Add(time.Hour)
	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatal("expected miss at expiry")
	}
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*model.Verdict, bool, error) {
	return nil, false, errors.New("redis down")
}

func (failingCache) Set(context.Context, string, *model.Verdict, time.Duration) error {
	return errors.New("redis down")
}

func TestCachedIgnoresCacheFailures(t *testing.T) {
	calls := 0
	inner := GraderFunc(func(ctx context.Context, sub Submission) (*model.Verdict, error) {
		calls++
		return &model.Verdict{Correct: true, CorrectnessScore: 80}, nil
	})
	g := NewCached(inner, failingCache{}, time.Hour, zap.NewNop())

	v, err := g.Grade(context.Background(), Submission{Challenge: sqlChallenge(), Code: "SELECT 1"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if v.CorrectnessScore != 80 || calls != 1 {
		t.Errorf("verdict = %+v, calls = %d", v, calls)
	}
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	cache := NewMemoryVerdictCache()
	boom := errors.New("boom")
	g := NewCached(GraderFunc(func(context.Context, Submission) (*model.Verdict, error) {
		return nil, boom
	}), cache, time.Hour, zap.NewNop())

	sub := Submission{Challenge: sqlChallenge(), Code: "SELECT 1"}
	if _, err := g.Grade(context.Background(), sub); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	key := CacheKey(model.DomainSQL, sub.Challenge.ID, sub.Code)
	if _, ok, _ := cache.Get(context.Background(), key); ok {
		t.Error("failed grade must not be cached")
	}
}
