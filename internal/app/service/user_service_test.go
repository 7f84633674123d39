package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

func TestUserProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addChallenge(t, "sql-1", model.IslandSQLShore, 1)
	f.addChallenge(t, "sql-2", model.IslandSQLShore, 2)
	f.grader.verdicts["ok"] = verdict(true, 100, 30, 50)

	if _, err := f.subs.Submit(ctx, SubmitRequest{UserID: "alice", ChallengeID: "sql-1", Code: "ok", TimeSpentSeconds: 30}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.subs.Submit(ctx, SubmitRequest{UserID: "alice", ChallengeID: "sql-2", Code: "wrong"}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.streaks.CheckAndUpdate(ctx, "alice"); err != nil {
		t.Fatalf("CheckAndUpdate: %v", err)
	}
	if _, err := f.ach.CheckAchievements(ctx, "alice"); err != nil {
		t.Fatalf("CheckAchievements: %v", err)
	}

	p, err := f.users.Profile(ctx, "alice")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Rank != 1 || p.Tier != model.TierDataApprentice || p.TotalXP != f.totalXP(t, "alice") {
		t.Errorf("profile head = rank %d tier %s xp %d", p.Rank, p.Tier, p.TotalXP)
	}
	if p.Stats.CompletedChallenges != 1 || p.Stats.AttemptedChallenges != 2 {
		t.Errorf("stats = %+v, want 1 completed of 2 attempted", p.Stats)
	}
	if want := float64(p.Stats.TotalScore) / 2; p.Stats.AvgScore != want {
		t.Errorf("avg score = %v, want %v", p.Stats.AvgScore, want)
	}
	if p.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %+v, want 1 day", p.Streak)
	}
	if len(p.Achievements) == 0 {
		t.Error("profile lists no achievements after first_query")
	}

	b, err := f.users.Profile(ctx, "bob")
	if err != nil || b.Rank != 0 || b.Stats.AttemptedChallenges != 0 || len(b.Achievements) != 0 {
		t.Errorf("Profile(bob) = %+v, %v; want an empty unranked profile", b, err)
	}

	pub, err := f.users.PublicProfile(ctx, "alice")
	if err != nil || pub.Username != "alice" || pub.TotalXP != p.TotalXP {
		t.Errorf("PublicProfile = %+v, %v", pub, err)
	}

	if _, err := f.users.Profile(ctx, "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Profile(ghost) = %v, want ErrNotFound", err)
	}
	if _, err := f.users.PublicProfile(ctx, "ghost"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("PublicProfile(ghost) = %v, want ErrNotFound", err)
	}
}

func TestUserProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addChallenge(t, "sql-1", model.IslandSQLShore, 1)
	f.addChallenge(t, "sql-2", model.IslandSQLShore, 1)
	f.addChallenge(t, "py-1", model.IslandPythonPeninsula, 1)
	f.grader.verdicts["ok"] = verdict(true, 100, 30, 50)

	for _, sub := range []SubmitRequest{
		{UserID: "alice", ChallengeID: "sql-1", Code: "ok"},
		{UserID: "alice", ChallengeID: "sql-2", Code: "wrong"},
		{UserID: "alice", ChallengeID: "py-1", Code: "ok"},
	} {
		if _, err := f.subs.Submit(ctx, sub); err != nil {
			t.Fatalf("Submit(%s): %v", sub.ChallengeID, err)
		}
		f.clock.Advance(time.Minute)
	}

	own, err := f.users.Progress(ctx, "alice", "alice")
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(own.Progress) != 3 || own.Progress[0].ChallengeID != "py-1" || own.Progress[0].LastCode != "ok" {
		t.Errorf("progress = %+v, want newest first with code", own.Progress)
	}
	sql := own.ByIsland[model.IslandSQLShore]
	if sql == nil || sql.Attempted != 2 || sql.Completed != 1 || len(sql.Challenges) != 2 {
		t.Errorf("sql_shore summary = %+v, want 1 of 2", sql)
	}

	other, err := f.users.Progress(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("Progress as bob: %v", err)
	}
	for _, e := range other.Progress {
		if e.LastCode != "" {
			t.Errorf("bob sees alice's code for %s", e.ChallengeID)
		}
	}

	empty, err := f.users.Progress(ctx, "bob", "bob")
	if err != nil || len(empty.Progress) != 0 || len(empty.ByIsland) != 0 {
		t.Errorf("Progress(bob) = %+v, %v; want empty", empty, err)
	}
	if _, err := f.users.Progress(ctx, "ghost", "alice"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Progress(ghost) = %v, want ErrNotFound", err)
	}
}
