package leaderboard

import (
	"context"
	"sort"
	"sync"

	"data_quest/internal/common"
)

// MemoryStore is the in-process stand-in for offline mode and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	scores map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scores: make(map[string]int64)}
}

func (s *MemoryStore) IncrBy(_ context.Context, userID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[userID] += delta
	return s.scores[userID], nil
}

func (s *MemoryStore) Score(_ context.Context, userID string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[userID]
	return score, ok, nil
}

func (s *MemoryStore) Rank(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.scores[userID]; !ok {
		return 0, common.ErrNotFound
	}
	for i, e := range s.sortedLocked() {
		if e.UserID == userID {
			return int64(i) + 1, nil
		}
	}
	return 0, common.ErrNotFound
}

func (s *MemoryStore) Top(_ context.Context, n int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := s.sortedLocked()
	if n < int64(len(sorted)) {
		if n < 0 {
			n = 0
		}
		sorted = sorted[:n]
	}
	return sorted, nil
}

func (s *MemoryStore) Range(_ context.Context, start, stop int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sorted := s.sortedLocked()
	if start < 0 {
		start = 0
	}
	if stop >= int64(len(sorted)) {
		stop = int64(len(sorted)) - 1
	}
	if stop < start {
		return []Entry{}, nil
	}
	return sorted[start : stop+1], nil
}

func (s *MemoryStore) Replace(_ context.Context, entries []Entry) error {
	scores := make(map[string]int64, len(entries))
	for _, e := range entries {
		scores[e.UserID] = e.Score
	}
	s.mu.Lock()
	s.scores = scores
	s.mu.Unlock()
	return nil
}

// sortedLocked orders like a Redis sorted set read in reverse: score
// descending, then member descending.
func (s *MemoryStore) sortedLocked() []Entry {
	entries := make([]Entry, 0, len(s.scores))
	for id, score := range s.scores {
		entries = append(entries, Entry{UserID: id, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID > entries[j].UserID
	})
	return entries
}
