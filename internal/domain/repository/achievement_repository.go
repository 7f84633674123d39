package repository

import (
	"context"
	"fmt"
	"time"

	"data_quest/internal/domain/model"
)

type AchievementRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.Achievement, error)
	// Grant inserts the pair once; granted is false when it already existed.
	Grant(ctx context.Context, userID, badgeID string, at time.Time) (granted bool, err error)
}

type MilestoneRepository interface {
	ListByUser(ctx context.Context, userID string) ([]model.UserMilestone, error)
	Grant(ctx context.Context, userID, milestoneID string, at time.Time) (granted bool, err error)
}

type pgAchievementRepository struct {
	db Querier
}

func NewPgAchievementRepository(db Querier) AchievementRepository {
	return &pgAchievementRepository{db: db}
}

func (r *pgAchievementRepository) ListByUser(ctx context.Context, userID string) ([]model.Achievement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, badge_id, unlocked_at FROM achievements WHERE user_id = $1 ORDER BY unlocked_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgAchievementRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	out := []model.Achievement{}
	for rows.Next() {
		var a model.Achievement
		if err := rows.Scan(&a.UserID, &a.BadgeID, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("pgAchievementRepository.ListByUser scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *pgAchievementRepository) Grant(ctx context.Context, userID, badgeID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO achievements (user_id, badge_id, unlocked_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, badgeID, at)
	if err != nil {
		return false, fmt.Errorf("pgAchievementRepository.Grant: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

type pgMilestoneRepository struct {
	db Querier
}

func NewPgMilestoneRepository(db Querier) MilestoneRepository {
	return &pgMilestoneRepository{db: db}
}

func (r *pgMilestoneRepository) ListByUser(ctx context.Context, userID string) ([]model.UserMilestone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, milestone_id, achieved_at FROM user_milestones WHERE user_id = $1 ORDER BY achieved_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("pgMilestoneRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	out := []model.UserMilestone{}
	for rows.Next() {
		var m model.UserMilestone
		if err := rows.Scan(&m.UserID, &m.MilestoneID, &m.AchievedAt); err != nil {
			return nil, fmt.Errorf("pgMilestoneRepository.ListByUser scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgMilestoneRepository) Grant(ctx context.Context, userID, milestoneID string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO user_milestones (user_id, milestone_id, achieved_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, milestoneID, at)
	if err != nil {
		return false, fmt.Errorf("pgMilestoneRepository.Grant: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}
