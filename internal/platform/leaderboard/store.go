// Package leaderboard keeps a ranked cache of total XP per user. The
// relational users.total_xp column is authoritative; a Store can always be
// rebuilt from it with Replace.
package leaderboard

import "context"

type Entry struct {
	UserID string
	Score  int64
}

type Store interface {
	// IncrBy atomically adds delta to the member's score and returns the new score.
	IncrBy(ctx context.Context, userID string, delta int64) (int64, error)
	// Score returns the member's score; ok is false when the member is absent.
	Score(ctx context.Context, userID string) (score int64, ok bool, err error)
	// Rank is 1-based, highest score first. Absent members yield common.ErrNotFound.
	Rank(ctx context.Context, userID string) (int64, error)
	// Top returns up to n entries, highest score first.
	Top(ctx context.Context, n int64) ([]Entry, error)
	// Range returns the entries ranked start..stop, 0-based and inclusive.
	Range(ctx context.Context, start, stop int64) ([]Entry, error)
	// Replace swaps the whole board for entries.
	Replace(ctx context.Context, entries []Entry) error
}
