package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"data_quest/internal/app/hooks"
	"data_quest/internal/common"
	"data_quest/internal/common/security"
)

func init() {
	security.Init([]byte("test-secret"), time.Hour)
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	logins := 0
	f.hooks.Register(hooks.EventLogin, "count", func(ctx context.Context, p hooks.Payload) error {
		logins++
		return nil
	})

	signup, err := f.auth.Signup(ctx, SignupRequest{Username: "alice", Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if signup.Token == "" || signup.User.HashedPassword != "" {
		t.Errorf("signup = %+v, want token and no hash", signup)
	}

	if _, err := f.auth.Signup(ctx, SignupRequest{Username: "alice", Email: "other@example.com", Password: "correct horse"}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate signup = %v, want ErrConflict", err)
	}

	resp, err := f.auth.Login(ctx, LoginRequest{LoginField: "alice", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Streak == nil || resp.Streak.Streak != 1 || resp.Streak.XPBonus != 10 {
		t.Errorf("login streak = %+v, want first-login bonus", resp.Streak)
	}
	if resp.User.TotalXP != 10 {
		t.Errorf("login user xp = %d, want 10", resp.User.TotalXP)
	}
	if logins != 1 {
		t.Errorf("login hooks = %d, want 1", logins)
	}

	byEmail, err := f.auth.Login(ctx, LoginRequest{LoginField: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("Login by email: %v", err)
	}
	if byEmail.Streak.XPBonus != 0 {
		t.Errorf("same-day login bonus = %d, want 0", byEmail.Streak.XPBonus)
	}

	if _, err := f.auth.Login(ctx, LoginRequest{LoginField: "alice", Password: "wrong password"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("bad password = %v, want ErrUnauthorized", err)
	}
	if _, err := f.auth.Login(ctx, LoginRequest{LoginField: "ghost", Password: "whatever"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("unknown user = %v, want ErrUnauthorized", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"short username", SignupRequest{Username: "al", Email: "a@example.com", Password: "longenough"}},
		{"symbols in username", SignupRequest{Username: "al ice", Email: "a@example.com", Password: "longenough"}},
		{"bad email", SignupRequest{Username: "alice", Email: "not-an-email", Password: "longenough"}},
		{"short password", SignupRequest{Username: "alice", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.Signup(context.Background(), tt.req); !errors.Is(err, common.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestNotifications_MarkRead(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice")
	ctx := context.Background()
	if _, err := f.streaks.CheckAndUpdate(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	n, err := newNotification("alice", "achievement", "Hello", "World", map[string]string{}, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.Repos().Notifications.Create(ctx, n); err != nil {
		t.Fatal(err)
	}

	if err := f.notes.MarkRead(ctx, "alice", "not-a-uuid"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("bad id = %v, want ErrNotFound", err)
	}
	if err := f.notes.MarkRead(ctx, "bob", n.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("foreign notification = %v, want ErrNotFound", err)
	}
	if err := f.notes.MarkRead(ctx, "alice", n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	unread, _ := f.notes.List(ctx, "alice", true, 0)
	if len(unread) != 0 {
		t.Errorf("unread = %+v, want none", unread)
	}
}
