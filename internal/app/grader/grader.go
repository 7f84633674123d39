// Package grader judges a submission and produces a model.Verdict.
//
// Strategies compose as decorators: a remote grader performs a single
// attempt, Retrying wraps it with a retry policy and Cached short-circuits
// repeated (challenge, code) pairs. The deterministic Fallback is used on
// its own when no remote service is configured.
package grader

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"data_quest/internal/domain/model"

	"go.uber.org/zap"
)

// Submission is one piece of code plus what it produced when the client ran it.
type Submission struct {
	Challenge *model.Challenge
	Code      string
	Output    json.RawMessage
}

type Grader interface {
	Grade(ctx context.Context, sub Submission) (*model.Verdict, error)
}

type Hinter interface {
	Hint(ctx context.Context, challenge *model.Challenge, code string, level int) (*model.Hint, error)
}

type GraderHinter interface {
	Grader
	Hinter
}

// GraderFunc adapts a function to Grader.
type GraderFunc func(ctx context.Context, sub Submission) (*model.Verdict, error)

func (f GraderFunc) Grade(ctx context.Context, sub Submission) (*model.Verdict, error) {
	return f(ctx, sub)
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	CacheTTL    time.Duration
}

// Strategy bundles the grader and hinter chosen at startup.
type Strategy struct {
	Grader Grader
	Hinter Hinter
	Remote bool
	// Budget is the worst-case time one grading call can take, retries
	// included. Zero for the fallback grader.
	Budget time.Duration
}

// New selects the remote chain when an API key is configured and the
// deterministic fallback otherwise.
func New(opts Options, cache VerdictCache, client *http.Client, logger *zap.Logger) Strategy {
	if opts.APIKey == "" {
		logger.Warn("remote grading not configured, using deterministic fallback grader")
		fb := Fallback{}
		return Strategy{Grader: fb, Hinter: fb}
	}

	remote := NewRemote(RemoteConfig{
		APIKey:  opts.APIKey,
		BaseURL: opts.BaseURL,
		Model:   opts.Model,
		Timeout: opts.Timeout,
	}, client)

	policy := DefaultPolicy()
	if opts.MaxAttempts > 0 {
		policy.MaxAttempts = opts.MaxAttempts
	}
	retrying := NewRetrying(remote, policy, logger)
	return Strategy{
		Grader: NewCached(retrying, cache, opts.CacheTTL, logger),
		Hinter: retrying,
		Remote: true,
		Budget: policy.Budget(remote.cfg.Timeout),
	}
}
