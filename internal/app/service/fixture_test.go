package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"data_quest/internal/app/grader"
	"data_quest/internal/app/hooks"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/leaderboard"

	"go.uber.org/zap"
)

// clock is a settable time source shared by every service in a fixture.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedGrader returns the verdict registered for the submitted code.
type scriptedGrader struct {
	mu       sync.Mutex
	verdicts map[string]model.Verdict
	err      error
	calls    int
}

func (g *scriptedGrader) Grade(_ context.Context, sub grader.Submission) (*model.Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	v, ok := g.verdicts[sub.Code]
	if !ok {
		v = model.Verdict{CorrectnessScore: 30}
	}
	return &v, nil
}

func verdict(correct bool, c, q, p int) model.Verdict {
	return model.Verdict{Correct: correct, CorrectnessScore: c, QualityScore: q, PerformanceScore: p}
}

type fixture struct {
	store   *repository.MemoryStore
	board   *leaderboard.MemoryStore
	grader  *scriptedGrader
	clock   *clock
	hooks   *hooks.Dispatcher
	ledger  *XPLedger
	subs    *SubmissionService
	pvp     *PvPService
	ach     *AchievementService
	streaks *StreakService
	lb      *LeaderboardService
	notes   *NotificationService
	auth    *AuthService
	users   *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		board:  leaderboard.NewMemoryStore(),
		grader: &scriptedGrader{verdicts: map[string]model.Verdict{}},
		clock:  &clock{t: time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)},
		hooks:  hooks.NewDispatcher(logger, false, time.Second),
	}
	f.ledger = NewXPLedger(f.board, logger)
	f.subs = NewSubmissionService(f.store, f.grader, grader.Fallback{}, f.ledger, f.hooks, logger)
	f.pvp = NewPvPService(f.store, f.grader, f.ledger, f.hooks, DefaultPvPConfig(), logger)
	f.ach = NewAchievementService(f.store, f.ledger, f.hooks, logger)
	f.streaks = NewStreakService(f.store, f.ledger, f.hooks, logger)
	f.lb = NewLeaderboardService(f.store, f.board, logger)
	f.notes = NewNotificationService(f.store)
	f.auth = NewAuthService(f.store, f.streaks, f.ach, f.hooks, logger)
	f.users = NewUserService(f.store, f.streaks, f.board)

	f.subs.now = f.clock.Now
	f.pvp.now = f.clock.Now
	f.ach.now = f.clock.Now
	f.streaks.now = f.clock.Now
	f.auth.now = f.clock.Now
	return f
}

func (f *fixture) addUser(t *testing.T, id string) {
	t.Helper()
	u := &model.User{ID: id, Username: id, Email: id + "@example.com", Role: model.RoleUser, CreatedAt: f.clock.Now()}
	if err := f.store.Repos().Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
}

func (f *fixture) addChallenge(t *testing.T, id, island string, difficulty int) {
	t.Helper()
	c := &model.Challenge{ID: id, IslandID: island, Title: "Challenge " + id, Difficulty: difficulty}
	if err := f.store.Repos().Challenges.Upsert(context.Background(), c); err != nil {
		t.Fatalf("upsert challenge %s: %v", id, err)
	}
}

func (f *fixture) totalXP(t *testing.T, userID string) int64 {
	t.Helper()
	u, err := f.store.Repos().Users.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find user %s: %v", userID, err)
	}
	return u.TotalXP
}

func (f *fixture) boardScore(t *testing.T, userID string) int64 {
	t.Helper()
	score, _, err := f.board.Score(context.Background(), userID)
	if err != nil {
		t.Fatalf("board score %s: %v", userID, err)
	}
	return score
}
