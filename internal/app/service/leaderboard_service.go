package service

import (
	"context"
	"errors"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/leaderboard"

	"go.uber.org/zap"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 100
)

type LeaderboardService struct {
	store  repository.Store
	board  leaderboard.Store
	logger *zap.Logger
}

func NewLeaderboardService(store repository.Store, board leaderboard.Store, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{store: store, board: board, logger: logger}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLeaderboardLimit
	}
	return min(limit, maxLeaderboardLimit)
}

func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	top, err := s.board.Top(ctx, int64(clampLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return s.named(ctx, 1, top)
}

// named turns board entries into leaderboard rows, ranking from firstRank.
func (s *LeaderboardService) named(ctx context.Context, firstRank int64, board []leaderboard.Entry) ([]model.LeaderboardEntry, error) {
	ids := make([]string, 0, len(board))
	for _, e := range board {
		ids = append(ids, e.UserID)
	}
	names, err := s.store.Repos().Users.Usernames(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve usernames: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(board))
	for i, e := range board {
		entries = append(entries, model.LeaderboardEntry{
			Rank:     firstRank + int64(i),
			UserID:   e.UserID,
			Username: names[e.UserID],
			TotalXP:  e.Score,
			Tier:     model.Tier(e.Score),
		})
	}
	return entries, nil
}

// nearbySpan is how many ranks on each side of the user Me returns.
const nearbySpan = 2

// Me reports the user's authoritative XP and board rank, with the players
// ranked just above and below. Users not on the board yet have rank 0 and
// no neighbours.
func (s *LeaderboardService) Me(ctx context.Context, userID string) (*model.Position, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	pos := &model.Position{
		LeaderboardEntry: model.LeaderboardEntry{
			UserID:   user.ID,
			Username: user.Username,
			TotalXP:  user.TotalXP,
			Tier:     model.Tier(user.TotalXP),
		},
		Nearby: []model.LeaderboardEntry{},
	}
	rank, err := s.board.Rank(ctx, userID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return pos, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read rank: %w", err)
	}
	pos.Rank = rank

	start := max(rank-1-nearbySpan, 0)
	window, err := s.board.Range(ctx, start, rank-1+nearbySpan)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if pos.Nearby, err = s.named(ctx, start+1, window); err != nil {
		return nil, err
	}
	return pos, nil
}

// ByTier ranks the users inside one tier's XP band from users.total_xp.
func (s *LeaderboardService) ByTier(ctx context.Context, tier string, limit, offset int) ([]model.LeaderboardEntry, error) {
	band, ok := model.LookupTier(tier)
	if !ok {
		return nil, fmt.Errorf("unknown tier %q: %w", tier, common.ErrValidation)
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must not be negative: %w", common.ErrValidation)
	}
	users, err := s.store.Repos().Users.ListByXPRange(ctx, band.MinXP, band.MaxXP, clampLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load tier %s: %w", band.Name, err)
	}
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			Rank:     int64(offset + i + 1),
			UserID:   u.UserID,
			Username: u.Username,
			TotalXP:  u.TotalXP,
			Tier:     band.Name,
		})
	}
	return entries, nil
}

var islands = map[string]bool{model.IslandSQLShore: true, model.IslandPythonPeninsula: true}

// ByIsland ranks the players who completed something on the island by the
// sum of their best scores there.
func (s *LeaderboardService) ByIsland(ctx context.Context, islandID string, limit int) ([]model.IslandStanding, error) {
	if !islands[islandID] {
		return nil, fmt.Errorf("island %s: %w", islandID, common.ErrNotFound)
	}
	standings, err := s.store.Repos().Progress.IslandStandings(ctx, islandID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load island standings: %w", err)
	}
	return standings, nil
}

// Rebuild replaces the board with users.total_xp, repairing any drift.
func (s *LeaderboardService) Rebuild(ctx context.Context) (int, error) {
	users, err := s.store.Repos().Users.ListXP(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load xp totals: %w", err)
	}
	entries := make([]leaderboard.Entry, 0, len(users))
	for _, u := range users {
		entries = append(entries, leaderboard.Entry{UserID: u.UserID, Score: u.TotalXP})
	}
	if err := s.board.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to replace leaderboard: %w", err)
	}
	s.logger.Info("Leaderboard rebuilt", zap.Int("entries", len(entries)))
	return len(entries), nil
}
