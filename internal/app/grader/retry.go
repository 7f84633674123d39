package grader

import (
	"context"
	"fmt"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"

	"go.uber.org/zap"
)

// Policy describes how many times to attempt an operation and how long to
// wait between attempts.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration // delay after the given 0-based failed attempt
	Sleep       func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy tries three times, waiting 1s then 2s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Backoff:     Exponential(time.Second),
		Sleep:       SleepContext,
	}
}

// Exponential doubles base for every failed attempt.
func Exponential(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return base << uint(attempt)
	}
}

func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Budget is the longest Do can take when every attempt runs for perAttempt
// and fails.
func (p Policy) Budget(perAttempt time.Duration) time.Duration {
	attempts := max(p.MaxAttempts, 1)
	total := time.Duration(attempts) * perAttempt
	if p.Backoff != nil {
		for i := 0; i < attempts-1; i++ {
			total += p.Backoff(i)
		}
	}
	return total
}

// Do runs op until it succeeds or the attempts run out, returning the last error.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		if p.Backoff != nil {
			if serr := sleep(ctx, p.Backoff(i)); serr != nil {
				return fmt.Errorf("%w (last attempt: %v)", serr, err)
			}
		}
	}
	return err
}

// Retrying applies a Policy to every grading and hint call of the wrapped strategy.
type Retrying struct {
	inner  GraderHinter
	policy Policy
	logger *zap.Logger
}

func NewRetrying(inner GraderHinter, policy Policy, logger *zap.Logger) *Retrying {
	return &Retrying{inner: inner, policy: policy, logger: logger}
}

func (r *Retrying) Grade(ctx context.Context, sub Submission) (*model.Verdict, error) {
	var verdict *model.Verdict
	attempt := 0
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		attempt++
		v, err := r.inner.Grade(ctx, sub)
		if err != nil {
			r.logger.Warn("grading attempt failed",
				zap.String("challenge_id", sub.Challenge.ID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		verdict = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: challenge %s after %d attempts: %v", common.ErrGrading, sub.Challenge.ID, attempt, err)
	}
	return verdict, nil
}

func (r *Retrying) Hint(ctx context.Context, challenge *model.Challenge, code string, level int) (*model.Hint, error) {
	var hint *model.Hint
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		h, err := r.inner.Hint(ctx, challenge, code, level)
		if err != nil {
			return err
		}
		hint = h
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: hint for %s: %v", common.ErrServiceUnavailable, challenge.ID, err)
	}
	return hint, nil
}
