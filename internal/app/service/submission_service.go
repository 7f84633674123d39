package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/app/grader"
	"data_quest/internal/app/hooks"
	"data_quest/internal/app/scoring"
	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"

	"go.uber.org/zap"
)

const (
	MaxCodeBytes = 64 << 10
	MinHintLevel = 1
	MaxHintLevel = 3
)

type SubmissionService struct {
	store  repository.Store
	grader grader.Grader
	hinter grader.Hinter
	ledger *XPLedger
	hooks  *hooks.Dispatcher
	logger *zap.Logger
	now    func() time.Time
}

func NewSubmissionService(
	store repository.Store,
	g grader.Grader,
	h grader.Hinter,
	ledger *XPLedger,
	dispatcher *hooks.Dispatcher,
	logger *zap.Logger,
) *SubmissionService {
	return &SubmissionService{
		store:  store,
		grader: g,
		hinter: h,
		ledger: ledger,
		hooks:  dispatcher,
		logger: logger,
		now:    time.Now,
	}
}

type SubmitRequest struct {
	UserID           string          `json:"-"`
	ChallengeID      string          `json:"-"`
	Code             string          `json:"code"`
	Output           json.RawMessage `json:"output"`
	TimeSpentSeconds int             `json:"timeSpent"`
}

type SubmitResult struct {
	Validation      *model.Verdict      `json:"validation"`
	Score           int                 `json:"score"`
	TimeBonus       int                 `json:"timeBonus"`
	XPEarned        int                 `json:"xpEarned"`
	IsNewCompletion bool                `json:"isNewCompletion"`
	Progress        *model.UserProgress `json:"progress"`
}

// SubmissionEvent is the hook payload data for hooks.EventSubmission.
type SubmissionEvent struct {
	ChallengeID     string `json:"challenge_id"`
	Correct         bool   `json:"correct"`
	Score           int    `json:"score"`
	XPEarned        int    `json:"xp_earned"`
	IsNewCompletion bool   `json:"is_new_completion"`
}

func validateSubmission(userID, code string, timeSpent int) error {
	switch {
	case userID == "":
		return fmt.Errorf("user id is required: %w", common.ErrValidation)
	case timeSpent < 0:
		return fmt.Errorf("time spent must not be negative: %w", common.ErrValidation)
	case len(code) > MaxCodeBytes:
		return fmt.Errorf("code exceeds %d bytes: %w", MaxCodeBytes, common.ErrValidation)
	}
	return nil
}

// Submit grades code for a challenge and folds the result into the user's
// progress. XP is credited only the first time the challenge is completed.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.ChallengeID == "" {
		return nil, fmt.Errorf("challenge id is required: %w", common.ErrValidation)
	}
	if err := validateSubmission(req.UserID, req.Code, req.TimeSpentSeconds); err != nil {
		return nil, err
	}

	challenge, err := s.store.Repos().Challenges.FindByID(ctx, req.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("challenge %s: %w", req.ChallengeID, err)
	}

	// Challenges are immutable, so grading happens before any row is locked.
	verdict, err := s.grader.Grade(ctx, grader.Submission{Challenge: challenge, Code: req.Code, Output: req.Output})
	if err != nil {
		return nil, err
	}
	scored := scoring.Calculate(*verdict, req.TimeSpentSeconds, challenge.Difficulty)

	result := &SubmitResult{Validation: verdict, Score: scored.Score, TimeBonus: scored.TimeBonus}
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Users.LockByID(ctx, req.UserID); err != nil {
			return fmt.Errorf("user %s: %w", req.UserID, err)
		}

		now := s.now().UTC()
		progress, isNew, err := s.applyProgress(ctx, repos, req, verdict.Correct, scored.Score, now)
		if err != nil {
			return err
		}
		result.Progress = progress
		result.IsNewCompletion = isNew

		if isNew {
			if _, err := s.ledger.Credit(ctx, repos, req.UserID, int64(scored.XP)); err != nil {
				return err
			}
			result.XPEarned = scored.XP
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}

	s.logger.Info("Submission graded",
		zap.String("user_id", req.UserID),
		zap.String("challenge_id", req.ChallengeID),
		zap.Bool("correct", verdict.Correct),
		zap.Int("score", result.Score),
		zap.Int("xp_earned", result.XPEarned))

	s.hooks.Dispatch(ctx, hooks.EventSubmission, hooks.Payload{
		UserID: req.UserID,
		Data: SubmissionEvent{
			ChallengeID:     req.ChallengeID,
			Correct:         verdict.Correct,
			Score:           result.Score,
			XPEarned:        result.XPEarned,
			IsNewCompletion: result.IsNewCompletion,
		},
	})
	return result, nil
}

// applyProgress inserts or updates the progress row and reports whether this
// attempt is the user's first completion of the challenge.
func (s *SubmissionService) applyProgress(ctx context.Context, repos repository.Repositories, req SubmitRequest, correct bool, score int, now time.Time) (*model.UserProgress, bool, error) {
	prev, err := repos.Progress.Find(ctx, req.UserID, req.ChallengeID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	if prev == nil {
		spent := req.TimeSpentSeconds
		p := &model.UserProgress{
			UserID:      req.UserID,
			ChallengeID: req.ChallengeID,
			Completed:   correct,
			Score:       score,
			BestScore:   score,
			Attempts:    1,
			BestTime:    &spent,
			LastCode:    req.Code,
			UpdatedAt:   now,
		}
		if correct {
			p.CompletedAt = &now
		}
		if err := repos.Progress.Insert(ctx, p); err != nil {
			return nil, false, err
		}
		return p, correct, nil
	}

	isNew := correct && !prev.Completed
	p := *prev
	p.Completed = prev.Completed || correct
	p.Score = score
	if score > p.BestScore {
		p.BestScore = score
	}
	if prev.BestTime == nil || req.TimeSpentSeconds < *prev.BestTime {
		spent := req.TimeSpentSeconds
		p.BestTime = &spent
	}
	p.Attempts = prev.Attempts + 1
	p.LastCode = req.Code
	p.UpdatedAt = now
	if isNew {
		p.CompletedAt = &now
	}
	if err := repos.Progress.Update(ctx, &p); err != nil {
		return nil, false, err
	}
	return &p, isNew, nil
}

func (s *SubmissionService) ListChallenges(ctx context.Context, userID, islandID string) ([]model.ChallengeWithProgress, error) {
	challenges, err := s.store.Repos().Challenges.ListWithProgress(ctx, userID, islandID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

func (s *SubmissionService) GetChallenge(ctx context.Context, id string) (*model.Challenge, error) {
	challenge, err := s.store.Repos().Challenges.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("challenge %s: %w", id, err)
	}
	return challenge, nil
}

// Hint returns guidance for level 1 (nudge) to 3 (near solution).
func (s *SubmissionService) Hint(ctx context.Context, challengeID, code string, level int) (*model.Hint, error) {
	if level < MinHintLevel || level > MaxHintLevel {
		return nil, fmt.Errorf("hint level must be between %d and %d: %w", MinHintLevel, MaxHintLevel, common.ErrValidation)
	}
	challenge, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	hint, err := s.hinter.Hint(ctx, challenge, code, level)
	if err != nil {
		return nil, fmt.Errorf("failed to generate hint: %w", err)
	}
	return hint, nil
}
