package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/app/hooks"
	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"

	"go.uber.org/zap"
)

const (
	streakBaseBonus     = 10
	streakMilestoneDays = 7
)

// streakTiers are cumulative: every threshold reached adds its bonus.
var streakTiers = []struct{ days, bonus int }{
	{3, 10}, {7, 20}, {14, 30}, {30, 50}, {60, 100}, {100, 200},
}

// StreakBonus is the login bonus for the given consecutive day count.
func StreakBonus(days int) int {
	if days <= 0 {
		return 0
	}
	bonus := streakBaseBonus
	for _, t := range streakTiers {
		if days >= t.days {
			bonus += t.bonus
		}
	}
	return bonus
}

type StreakService struct {
	store  repository.Store
	ledger *XPLedger
	hooks  *hooks.Dispatcher
	logger *zap.Logger
	now    func() time.Time
}

func NewStreakService(store repository.Store, ledger *XPLedger, dispatcher *hooks.Dispatcher, logger *zap.Logger) *StreakService {
	return &StreakService{store: store, ledger: ledger, hooks: dispatcher, logger: logger, now: time.Now}
}

// CheckAndUpdate records today's login. Calendar days are UTC. A second
// call on the same day changes nothing and earns nothing.
func (s *StreakService) CheckAndUpdate(ctx context.Context, userID string) (*model.StreakUpdate, error) {
	now := s.now().UTC()
	today := now.Format(model.DateLayout)
	yesterday := now.AddDate(0, 0, -1).Format(model.DateLayout)

	var update *model.StreakUpdate
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.LockByID(ctx, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}

		prev, err := repos.Streaks.Find(ctx, userID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		next := model.Streak{UserID: userID, CurrentStreak: 1, LongestStreak: 1, LastLoginDate: today}
		bonus := streakBaseBonus
		var notification *model.Notification

		switch {
		case prev == nil:
		case prev.LastLoginDate == today:
			update = &model.StreakUpdate{Streak: prev.CurrentStreak, LongestStreak: prev.LongestStreak}
			return nil
		case prev.LastLoginDate == yesterday:
			next.CurrentStreak = prev.CurrentStreak + 1
			next.LongestStreak = max(prev.LongestStreak, next.CurrentStreak)
			bonus = StreakBonus(next.CurrentStreak)
			if next.CurrentStreak%streakMilestoneDays == 0 {
				extra := next.CurrentStreak * 10
				bonus += extra
				notification, err = newNotification(userID, model.NotificationStreakMilestone,
					fmt.Sprintf("%d-Day Streak!", next.CurrentStreak),
					fmt.Sprintf("Amazing! You've maintained a %d-day login streak!", next.CurrentStreak),
					map[string]int{"xpBonus": extra}, now)
				if err != nil {
					return err
				}
			}
		default:
			next.LongestStreak = max(prev.LongestStreak, 1)
		}

		if err := repos.Streaks.Save(ctx, &next); err != nil {
			return err
		}
		if notification != nil {
			if err := repos.Notifications.Create(ctx, notification); err != nil {
				return err
			}
		}
		if _, err := s.ledger.Credit(ctx, repos, userID, int64(bonus)); err != nil {
			return err
		}
		update = &model.StreakUpdate{
			Streak:        next.CurrentStreak,
			LongestStreak: next.LongestStreak,
			XPBonus:       bonus,
			Notification:  notification,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update streak: %w", err)
	}

	if update.XPBonus > 0 {
		s.logger.Info("Streak updated",
			zap.String("user_id", userID),
			zap.Int("streak", update.Streak),
			zap.Int("xp_bonus", update.XPBonus))
		s.hooks.Dispatch(ctx, hooks.EventStreakChecked, hooks.Payload{UserID: userID, Data: *update})
	}
	return update, nil
}

// Get returns the stored streak, or a zero streak for users who never logged in.
func (s *StreakService) Get(ctx context.Context, userID string) (*model.Streak, error) {
	streak, err := s.store.Repos().Streaks.Find(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return &model.Streak{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	return streak, nil
}
