package service

import (
	"context"
	"errors"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/leaderboard"
)

// UserService serves profiles and per-challenge progress.
type UserService struct {
	store   repository.Store
	streaks *StreakService
	board   leaderboard.Store
}

func NewUserService(store repository.Store, streaks *StreakService, board leaderboard.Store) *UserService {
	return &UserService{store: store, streaks: streaks, board: board}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	repos := s.store.Repos()
	user, err := repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	stats, err := repos.Progress.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress stats: %w", err)
	}
	streak, err := s.streaks.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	achievements, err := repos.Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}

	profile := &model.UserProfile{
		User: *user,
		Tier: model.Tier(user.TotalXP),
		Stats: model.ProfileStats{
			CompletedChallenges: stats.Completed,
			AttemptedChallenges: stats.Attempted,
			TotalScore:          stats.TotalBestScore,
			AvgScore:            stats.AvgBestScore,
		},
		Streak:       *streak,
		Achievements: achievements,
	}
	rank, err := s.board.Rank(ctx, userID)
	switch {
	case err == nil:
		profile.Rank = rank
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("failed to read rank: %w", err)
	}
	return profile, nil
}

func (s *UserService) PublicProfile(ctx context.Context, userID string) (*model.PublicProfile, error) {
	user, err := s.store.Repos().Users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	return &model.PublicProfile{
		ID:        user.ID,
		Username:  user.Username,
		Tier:      model.Tier(user.TotalXP),
		TotalXP:   user.TotalXP,
		CreatedAt: user.CreatedAt,
	}, nil
}

// Progress lists userID's attempts grouped by island. Submitted code is
// only shown to its author.
func (s *UserService) Progress(ctx context.Context, userID, viewerID string) (*model.ProgressReport, error) {
	repos := s.store.Repos()
	if _, err := repos.Users.FindByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, err)
	}
	entries, err := repos.Progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	report := &model.ProgressReport{Progress: entries, ByIsland: map[string]*model.IslandProgress{}}
	for i := range entries {
		if viewerID != userID {
			entries[i].LastCode = ""
		}
		e := entries[i]
		island := report.ByIsland[e.IslandID]
		if island == nil {
			island = &model.IslandProgress{}
			report.ByIsland[e.IslandID] = island
		}
		island.Attempted++
		if e.Completed {
			island.Completed++
		}
		island.Challenges = append(island.Challenges, e)
	}
	return report, nil
}
