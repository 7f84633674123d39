package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type StreakRepository interface {
	Find(ctx context.Context, userID string) (*model.Streak, error)
	Save(ctx context.Context, s *model.Streak) error
}

type pgStreakRepository struct {
	db Querier
}

func NewPgStreakRepository(db Querier) StreakRepository {
	return &pgStreakRepository{db: db}
}

func (r *pgStreakRepository) Find(ctx context.Context, userID string) (*model.Streak, error) {
	query := `SELECT user_id, current_streak, longest_streak, to_char(last_login_date, 'YYYY-MM-DD')
	          FROM streaks WHERE user_id = $1`
	s := &model.Streak{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastLoginDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgStreakRepository.Find: %w", err)
	}
	return s, nil
}

func (r *pgStreakRepository) Save(ctx context.Context, s *model.Streak) error {
	day, err := time.Parse(model.DateLayout, s.LastLoginDate)
	if err != nil {
		return fmt.Errorf("invalid last login date %q: %w", s.LastLoginDate, common.ErrValidation)
	}
	query := `INSERT INTO streaks (user_id, current_streak, longest_streak, last_login_date)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id) DO UPDATE SET
	              current_streak = EXCLUDED.current_streak,
	              longest_streak = EXCLUDED.longest_streak,
	              last_login_date = EXCLUDED.last_login_date`
	if _, err := r.db.ExecContext(ctx, query, s.UserID, s.CurrentStreak, s.LongestStreak, day); err != nil {
		return fmt.Errorf("pgStreakRepository.Save: %w", err)
	}
	return nil
}
