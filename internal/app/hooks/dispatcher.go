// Package hooks runs side effects after a primary operation has committed.
// A hook's failure or panic is logged and never reaches the caller or the
// other hooks.
package hooks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Event string

const (
	EventSubmission          Event = "submission"
	EventLogin               Event = "login"
	EventPvPCompleted        Event = "pvp_completed"
	EventStreakChecked       Event = "streak_checked"
	EventAchievementUnlocked Event = "achievement_unlocked"
)

// Payload carries the user the event concerns plus event-specific data.
type Payload struct {
	UserID string
	Data   interface{}
}

type Func func(ctx context.Context, p Payload) error

type namedHook struct {
	name string
	fn   Func
}

type Dispatcher struct {
	mu      sync.RWMutex
	hooks   map[Event][]namedHook
	logger  *zap.Logger
	async   bool
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher. In async mode hooks run in their own
// goroutine, detached from the request's cancellation and bounded by timeout.
func NewDispatcher(logger *zap.Logger, async bool, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		hooks:   make(map[Event][]namedHook),
		logger:  logger,
		async:   async,
		timeout: timeout,
	}
}

func (d *Dispatcher) Register(event Event, name string, fn Func) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks[event] = append(d.hooks[event], namedHook{name: name, fn: fn})
}

// Dispatch runs every hook registered for event, in registration order.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, p Payload) {
	d.mu.RLock()
	hooks := append([]namedHook(nil), d.hooks[event]...)
	d.mu.RUnlock()
	if len(hooks) == 0 {
		return
	}

	if !d.async {
		d.runAll(ctx, event, hooks, p)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		d.runAll(hctx, event, hooks, p)
	}()
}

// Wait blocks until every asynchronously dispatched hook has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) runAll(ctx context.Context, event Event, hooks []namedHook, p Payload) {
	for _, h := range hooks {
		if err := d.run(ctx, h, p); err != nil {
			d.logger.Warn("Hook failed",
				zap.String("event", string(event)),
				zap.String("hook", h.name),
				zap.String("user_id", p.UserID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, h namedHook, p Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.fn(ctx, p)
}
