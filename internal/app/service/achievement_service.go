package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/app/badge"
	"data_quest/internal/app/hooks"
	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AchievementService struct {
	store  repository.Store
	ledger *XPLedger
	hooks  *hooks.Dispatcher
	logger *zap.Logger
	now    func() time.Time
}

func NewAchievementService(store repository.Store, ledger *XPLedger, dispatcher *hooks.Dispatcher, logger *zap.Logger) *AchievementService {
	return &AchievementService{store: store, ledger: ledger, hooks: dispatcher, logger: logger, now: time.Now}
}

func (s *AchievementService) snapshot(ctx context.Context, repos repository.Repositories, userID string) (badge.Snapshot, error) {
	user, err := repos.Users.LockByID(ctx, userID)
	if err != nil {
		return badge.Snapshot{}, fmt.Errorf("user %s: %w", userID, err)
	}
	snap := badge.Snapshot{TotalXP: user.TotalXP}

	streak, err := repos.Streaks.Find(ctx, userID)
	switch {
	case err == nil:
		snap.CurrentStreak = streak.CurrentStreak
	case !errors.Is(err, common.ErrNotFound):
		return badge.Snapshot{}, err
	}

	stats, err := repos.Progress.Stats(ctx, userID)
	if err != nil {
		return badge.Snapshot{}, err
	}
	snap.Progress = *stats
	return snap, nil
}

func newNotification(userID, kind, title, message string, data interface{}, at time.Time) (*model.Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}
	return &model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Message:   message,
		Data:      raw,
		CreatedAt: at,
	}, nil
}

// CheckAchievements grants every badge the user now qualifies for and
// returns only the newly granted ones. Owned badges are never re-evaluated.
func (s *AchievementService) CheckAchievements(ctx context.Context, userID string) ([]model.Badge, error) {
	unlocked := []model.Badge{}
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		snap, err := s.snapshot(ctx, repos, userID)
		if err != nil {
			return err
		}
		owned, err := repos.Achievements.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(owned))
		for _, a := range owned {
			have[a.BadgeID] = true
		}

		now := s.now().UTC()
		for _, rule := range badge.Achievements {
			if have[rule.ID] || !badge.Evaluate(rule, snap) {
				continue
			}
			granted, err := repos.Achievements.Grant(ctx, userID, rule.ID, now)
			if err != nil {
				return err
			}
			if !granted {
				continue
			}
			n, err := newNotification(userID, model.NotificationAchievement,
				fmt.Sprintf("Achievement Unlocked: %s!", rule.Name), rule.Description,
				map[string]string{"badgeId": rule.ID, "icon": rule.Icon}, now)
			if err != nil {
				return err
			}
			if err := repos.Notifications.Create(ctx, n); err != nil {
				return err
			}
			at := now
			b := rule.Presentation(nil)
			b.Unlocked, b.UnlockedAt = true, &at
			unlocked = append(unlocked, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check achievements: %w", err)
	}

	for _, b := range unlocked {
		s.logger.Info("Achievement unlocked", zap.String("user_id", userID), zap.String("badge_id", b.ID))
		s.hooks.Dispatch(ctx, hooks.EventAchievementUnlocked, hooks.Payload{UserID: userID, Data: b})
	}
	return unlocked, nil
}

// CheckMilestones works like CheckAchievements and also credits each
// milestone's XP reward, all in one transaction.
func (s *AchievementService) CheckMilestones(ctx context.Context, userID string) ([]model.Badge, error) {
	reached := []model.Badge{}
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		snap, err := s.snapshot(ctx, repos, userID)
		if err != nil {
			return err
		}
		owned, err := repos.Milestones.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(owned))
		for _, m := range owned {
			have[m.MilestoneID] = true
		}

		now := s.now().UTC()
		var reward int64
		for _, rule := range badge.Milestones {
			if have[rule.ID] || !badge.Evaluate(rule, snap) {
				continue
			}
			granted, err := repos.Milestones.Grant(ctx, userID, rule.ID, now)
			if err != nil {
				return err
			}
			if !granted {
				continue
			}
			n, err := newNotification(userID, model.NotificationMilestone,
				fmt.Sprintf("Milestone Achieved: %s!", rule.Name), rule.Description,
				map[string]int{"xpReward": rule.XPReward}, now)
			if err != nil {
				return err
			}
			if err := repos.Notifications.Create(ctx, n); err != nil {
				return err
			}
			reward += int64(rule.XPReward)
			at := now
			b := rule.Presentation(nil)
			b.Unlocked, b.UnlockedAt = true, &at
			reached = append(reached, b)
		}

		_, err = s.ledger.Credit(ctx, repos, userID, reward)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check milestones: %w", err)
	}
	return reached, nil
}

// ListAll returns the whole achievement catalog with the user's unlock state.
func (s *AchievementService) ListAll(ctx context.Context, userID string) ([]model.Badge, error) {
	unlocked, err := s.unlockedByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Badge, 0, len(badge.Achievements))
	for _, rule := range badge.Achievements {
		out = append(out, rule.Presentation(unlocked))
	}
	return out, nil
}

// ListUnlocked returns the user's badges, most recent first.
func (s *AchievementService) ListUnlocked(ctx context.Context, userID string) ([]model.Badge, error) {
	owned, err := s.store.Repos().Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	out := make([]model.Badge, 0, len(owned))
	for _, a := range owned {
		out = append(out, presentOwned(a))
	}
	return out, nil
}

func (s *AchievementService) unlockedByID(ctx context.Context, userID string) (map[string]model.Badge, error) {
	owned, err := s.store.Repos().Achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	out := make(map[string]model.Badge, len(owned))
	for _, a := range owned {
		out[a.BadgeID] = presentOwned(a)
	}
	return out, nil
}

// presentOwned tolerates badge ids that have since left the catalog.
func presentOwned(a model.Achievement) model.Badge {
	at := a.UnlockedAt
	b := model.Badge{ID: a.BadgeID, Name: a.BadgeID, Icon: "award"}
	if rule, ok := badge.Lookup(badge.Achievements, a.BadgeID); ok {
		b = rule.Presentation(nil)
	}
	b.Unlocked, b.UnlockedAt = true, &at
	return b
}
