package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDispatch_IsolatesFailures(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), false, time.Second)

	var ran []string
	d.Register(EventSubmission, "fails", func(ctx context.Context, p Payload) error {
		ran = append(ran, "fails")
		return errors.New("boom")
	})
	d.Register(EventSubmission, "panics", func(ctx context.Context, p Payload) error {
		ran = append(ran, "panics")
		panic("kaboom")
	})
	d.Register(EventSubmission, "ok", func(ctx context.Context, p Payload) error {
		ran = append(ran, "ok:"+p.UserID)
		return nil
	})
	d.Register(EventLogin, "other", func(ctx context.Context, p Payload) error {
		ran = append(ran, "other")
		return nil
	})

	d.Dispatch(context.Background(), EventSubmission, Payload{UserID: "u1"})

	want := []string{"fails", "panics", "ok:u1"}
	if len(ran) != len(want) {
		t.Fatalf("ran = %v, want %v", ran, want)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Errorf("ran[%d] = %s, want %s", i, ran[i], want[i])
		}
	}
}

func TestDispatch_AsyncSurvivesCancelledRequest(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), true, time.Second)

	var mu sync.Mutex
	var ctxErr error
	called := false
	d.Register(EventLogin, "check", func(ctx context.Context, p Payload) error {
		mu.Lock()
		defer mu.Unlock()
		called = true
		ctxErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, EventLogin, Payload{UserID: "u1"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	if !called {
		t.Fatal("hook not called")
	}
	if ctxErr != nil {
		t.Errorf("hook ctx err = %v, want nil", ctxErr)
	}
}

func TestDispatch_NoHooks(t *testing.T) {
	d := NewDispatcher(zap.NewNop(), true, 0)
	d.Dispatch(context.Background(), EventPvPCompleted, Payload{})
	d.Wait()
}
