package main

import (
	"context"

	"data_quest/internal/app/hooks"
	"data_quest/internal/app/service"
	"data_quest/internal/domain/model"
	"data_quest/internal/platform/events"
)

// registerHooks connects the follow-up work each domain event triggers.
func registerHooks(d *hooks.Dispatcher, achievements *service.AchievementService, publisher events.Publisher) {
	checkAchievements := func(ctx context.Context, p hooks.Payload) error {
		_, err := achievements.CheckAchievements(ctx, p.UserID)
		return err
	}
	checkMilestones := func(ctx context.Context, p hooks.Payload) error {
		_, err := achievements.CheckMilestones(ctx, p.UserID)
		return err
	}
	// A completed match is dispatched for whoever submitted last, but only
	// the winner's XP moved.
	forWinner := func(fn hooks.Func) hooks.Func {
		return func(ctx context.Context, p hooks.Payload) error {
			m, ok := p.Data.(model.Match)
			if !ok || m.WinnerID == nil {
				return nil
			}
			p.UserID = *m.WinnerID
			return fn(ctx, p)
		}
	}
	publish := func(subject string) hooks.Func {
		return func(ctx context.Context, p hooks.Payload) error {
			return publisher.Publish(ctx, subject, p)
		}
	}

	d.Register(hooks.EventSubmission, "achievements", checkAchievements)
	d.Register(hooks.EventSubmission, "milestones", checkMilestones)
	d.Register(hooks.EventSubmission, "publish", publish(events.SubjectSubmissionCompleted))

	// Login checks achievements itself so it can report them in its response.
	d.Register(hooks.EventStreakChecked, "milestones", checkMilestones)

	d.Register(hooks.EventLogin, "milestones", checkMilestones)

	d.Register(hooks.EventAchievementUnlocked, "publish", publish(events.SubjectAchievementUnlocked))
	d.Register(hooks.EventPvPCompleted, "achievements", forWinner(checkAchievements))
	d.Register(hooks.EventPvPCompleted, "milestones", forWinner(checkMilestones))
	d.Register(hooks.EventPvPCompleted, "publish", publish(events.SubjectMatchCompleted))
}
