// Package worker runs periodic maintenance. Every task holds a distributed
// lock while it runs, so only one replica executes a given tick.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/platform/lock"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const lockPrefix = "dataquest:maintenance:"

type Task struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type MaintenanceWorker struct {
	locker  lock.Locker
	lockTTL time.Duration
	logger  *zap.Logger
	tasks   map[string]Task
	entries []scheduled
}

type scheduled struct {
	task     Task
	schedule cron.Schedule
}

func NewMaintenanceWorker(locker lock.Locker, lockTTL time.Duration, logger *zap.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		locker:  locker,
		lockTTL: lockTTL,
		logger:  logger,
		tasks:   make(map[string]Task),
	}
}

// Register validates the task's schedule. An empty schedule disables the task.
func (w *MaintenanceWorker) Register(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("maintenance task needs a name and a func: %w", common.ErrValidation)
	}
	if _, exists := w.tasks[t.Name]; exists {
		return fmt.Errorf("maintenance task %s registered twice: %w", t.Name, common.ErrConflict)
	}
	w.tasks[t.Name] = t
	if t.Schedule == "" {
		w.logger.Info("Maintenance task disabled", zap.String("task", t.Name))
		return nil
	}
	schedule, err := cron.ParseStandard(t.Schedule)
	if err != nil {
		return fmt.Errorf("maintenance task %s schedule %q: %w", t.Name, t.Schedule, err)
	}
	w.entries = append(w.entries, scheduled{task: t, schedule: schedule})
	return nil
}

// Start runs the scheduler until ctx is cancelled, then waits for running
// tasks to finish.
func (w *MaintenanceWorker) Start(ctx context.Context) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(w.logger.Named("cron")))
	c := cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))
	for _, e := range w.entries {
		task := e.task
		c.Schedule(e.schedule, cron.FuncJob(func() {
			if err := w.RunOnce(ctx, task.Name); err != nil {
				w.logger.Error("Maintenance task failed", zap.String("task", task.Name), zap.Error(err))
			}
		}))
		w.logger.Info("Maintenance task scheduled", zap.String("task", task.Name), zap.String("schedule", task.Schedule))
	}

	c.Start()
	<-ctx.Done()
	w.logger.Info("Maintenance worker stopping...")
	<-c.Stop().Done()
}

// RunOnce runs one task now under its lock. Losing the lock race to another
// replica is not an error.
func (w *MaintenanceWorker) RunOnce(ctx context.Context, name string) error {
	task, ok := w.tasks[name]
	if !ok {
		return fmt.Errorf("maintenance task %s: %w", name, common.ErrNotFound)
	}

	lease, err := w.locker.Acquire(ctx, lockPrefix+name, w.lockTTL)
	if errors.Is(err, common.ErrLockNotAcquired) {
		w.logger.Info("Maintenance task skipped, another replica holds the lock", zap.String("task", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock for %s: %w", name, err)
	}
	defer func() {
		released, err := lease.Release(context.WithoutCancel(ctx))
		switch {
		case err != nil:
			w.logger.Error("Failed to release maintenance lock", zap.String("task", name), zap.Error(err))
		case !released:
			w.logger.Warn("Maintenance lock expired before release", zap.String("task", name))
		}
	}()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		return err
	}
	w.logger.Info("Maintenance task finished", zap.String("task", name), zap.Duration("took", time.Since(start)))
	return nil
}
