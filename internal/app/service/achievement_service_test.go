package service

import (
	"context"
	"testing"

	"data_quest/internal/app/badge"
	"data_quest/internal/app/hooks"
	"data_quest/internal/domain/model"
)

func TestCheckAchievements_GrantsOnce(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice")
	f.addChallenge(t, "sql-1", model.IslandSQLShore, 1)
	f.grader.verdicts["ok"] = verdict(true, 100, 0, 0)
	ctx := context.Background()

	var published []string
	f.hooks.Register(hooks.EventAchievementUnlocked, "record", func(ctx context.Context, p hooks.Payload) error {
		published = append(published, p.Data.(model.Badge).ID)
		return nil
	})

	if _, err := f.subs.Submit(ctx, SubmitRequest{UserID: "alice", ChallengeID: "sql-1", Code: "ok", TimeSpentSeconds: 30}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := f.ach.CheckAchievements(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAchievements: %v", err)
	}
	ids := map[string]bool{}
	for _, b := range got {
		ids[b.ID] = true
	}
	// One challenge on one island: first completion, fast solve, perfect score, island complete.
	for _, want := range []string{"first_query", "speed_demon", "island_master"} {
		if !ids[want] {
			t.Errorf("missing %s in %v", want, ids)
		}
	}
	if ids["sql_novice"] || ids["python_master"] {
		t.Errorf("unexpected badges %v", ids)
	}
	if len(published) != len(got) {
		t.Errorf("published %d events for %d badges", len(published), len(got))
	}

	again, err := f.ach.CheckAchievements(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckAchievements: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second check granted %v", again)
	}

	notes, _ := f.notes.List(ctx, "alice", false, 50)
	if len(notes) != len(got) {
		t.Errorf("notifications = %d, want %d", len(notes), len(got))
	}
}

func TestListAll_MarksUnlocked(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice")
	ctx := context.Background()
	if _, err := f.store.Repos().Achievements.Grant(ctx, "alice", "streak_5", f.clock.Now()); err != nil {
		t.Fatal(err)
	}

	all, err := f.ach.ListAll(ctx, "alice")
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != len(badge.Achievements) {
		t.Fatalf("ListAll returned %d, want %d", len(all), len(badge.Achievements))
	}
	for _, b := range all {
		if b.Unlocked != (b.ID == "streak_5") {
			t.Errorf("%s unlocked = %v", b.ID, b.Unlocked)
		}
	}

	unlocked, _ := f.ach.ListUnlocked(ctx, "alice")
	if len(unlocked) != 1 || unlocked[0].Name != "5-Day Streak" || unlocked[0].UnlockedAt == nil {
		t.Errorf("ListUnlocked = %+v", unlocked)
	}
}

func TestCheckMilestones_CreditsRewardOnce(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice")
	ctx := context.Background()
	if _, err := f.store.Repos().Users.AddXP(ctx, "alice", 2600); err != nil {
		t.Fatal(err)
	}

	reached, err := f.ach.CheckMilestones(ctx, "alice")
	if err != nil {
		t.Fatalf("CheckMilestones: %v", err)
	}
	if len(reached) != 1 || reached[0].ID != "xp_2500" {
		t.Fatalf("reached = %+v, want xp_2500", reached)
	}
	rule, _ := badge.Lookup(badge.Milestones, "xp_2500")
	if got := f.totalXP(t, "alice"); got != 2600+int64(rule.XPReward) {
		t.Errorf("total_xp = %d, want %d", got, 2600+rule.XPReward)
	}
	if got := f.boardScore(t, "alice"); got != int64(rule.XPReward) {
		t.Errorf("leaderboard delta = %d, want %d", got, rule.XPReward)
	}

	again, _ := f.ach.CheckMilestones(ctx, "alice")
	if len(again) != 0 {
		t.Errorf("second check reached %v", again)
	}
	if got := f.totalXP(t, "alice"); got != 2600+int64(rule.XPReward) {
		t.Errorf("reward credited twice: total_xp = %d", got)
	}
}
