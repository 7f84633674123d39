package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"data_quest/internal/common"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a sorted set keyed by user id.
type RedisStore struct {
	rdb redis.Cmdable
	key string
}

func NewRedisStore(rdb redis.Cmdable, key string) *RedisStore {
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) IncrBy(ctx context.Context, userID string, delta int64) (int64, error) {
	score, err := s.rdb.ZIncrBy(ctx, s.key, float64(delta), userID).Result()
	if err != nil {
		return 0, fmt.Errorf("RedisStore.IncrBy: %w", err)
	}
	return int64(score), nil
}

func (s *RedisStore) Score(ctx context.Context, userID string) (int64, bool, error) {
	score, err := s.rdb.ZScore(ctx, s.key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("RedisStore.Score: %w", err)
	}
	return int64(score), true, nil
}

func (s *RedisStore) Rank(ctx context.Context, userID string) (int64, error) {
	rank, err := s.rdb.ZRevRank(ctx, s.key, userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, common.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("RedisStore.Rank: %w", err)
	}
	return rank + 1, nil
}

func (s *RedisStore) Top(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	return s.Range(ctx, 0, n-1)
}

func (s *RedisStore) Range(ctx context.Context, start, stop int64) ([]Entry, error) {
	if start < 0 {
		start = 0
	}
	if stop < start {
		return []Entry{}, nil
	}
	members, err := s.rdb.ZRevRangeWithScores(ctx, s.key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("RedisStore.Range: %w", err)
	}
	entries := make([]Entry, 0, len(members))
	for _, m := range members {
		id, _ := m.Member.(string)
		entries = append(entries, Entry{UserID: id, Score: int64(m.Score)})
	}
	return entries, nil
}

// Replace writes the new board under a temporary key and renames it over
// the live key, so readers never observe a half-built board.
func (s *RedisStore) Replace(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
			return fmt.Errorf("RedisStore.Replace: %w", err)
		}
		return nil
	}

	tmp := s.key + ":rebuild"
	members := make([]redis.Z, 0, len(entries))
	for _, e := range entries {
		members = append(members, redis.Z{Score: float64(e.Score), Member: e.UserID})
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, tmp)
	pipe.ZAdd(ctx, tmp, members...)
	pipe.Rename(ctx, tmp, s.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("RedisStore.Replace: %w", err)
	}
	return nil
}
