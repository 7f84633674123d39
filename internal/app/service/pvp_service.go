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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	PvPMinDifficulty      = 2
	defaultStandingsLimit = 50
	maxStandingsLimit     = 100
)

type PvPConfig struct {
	WinXP      int
	PendingTTL time.Duration
	ActiveTTL  time.Duration
}

func DefaultPvPConfig() PvPConfig {
	return PvPConfig{WinXP: 100, PendingTTL: time.Hour, ActiveTTL: 24 * time.Hour}
}

// PvPService runs two-player matches on a shared challenge. Match results
// never touch single-player progress; only the win bonus moves XP.
type PvPService struct {
	store  repository.Store
	grader grader.Grader
	ledger *XPLedger
	hooks  *hooks.Dispatcher
	cfg    PvPConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewPvPService(
	store repository.Store,
	g grader.Grader,
	ledger *XPLedger,
	dispatcher *hooks.Dispatcher,
	cfg PvPConfig,
	logger *zap.Logger,
) *PvPService {
	return &PvPService{store: store, grader: g, ledger: ledger, hooks: dispatcher, cfg: cfg, logger: logger, now: time.Now}
}

type FindOrCreateResult struct {
	Match  model.MatchView `json:"match"`
	IsNew  bool            `json:"isNew"`
	Joined bool            `json:"joined"`
}

// FindOrCreate returns the caller's open match on the challenge, joins the
// oldest joinable one, or opens a new pending match, in that order.
func (s *PvPService) FindOrCreate(ctx context.Context, userID, challengeID string) (*FindOrCreateResult, error) {
	if userID == "" || challengeID == "" {
		return nil, fmt.Errorf("user id and challenge id are required: %w", common.ErrValidation)
	}

	var result *FindOrCreateResult
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if _, err := repos.Challenges.FindByID(ctx, challengeID); err != nil {
			return fmt.Errorf("challenge %s: %w", challengeID, err)
		}
		// Serializes concurrent find-or-create calls by the same user.
		if _, err := repos.Users.LockByID(ctx, userID); err != nil {
			return fmt.Errorf("user %s: %w", userID, err)
		}
		now := s.now().UTC()

		open, err := repos.Matches.FindOpenForUser(ctx, userID, challengeID, now)
		if err == nil {
			result = &FindOrCreateResult{Match: open.ViewFor(userID)}
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		joinable, err := repos.Matches.LockJoinable(ctx, challengeID, userID, now)
		if err == nil {
			joiner := userID
			joinable.Player2ID = &joiner
			joinable.Status = model.MatchActive
			joinable.StartedAt = &now
			joinable.ExpiresAt = now.Add(s.cfg.ActiveTTL)
			if err := repos.Matches.Update(ctx, joinable); err != nil {
				return err
			}
			result = &FindOrCreateResult{Match: joinable.ViewFor(userID), Joined: true}
			return nil
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}

		m := &model.Match{
			ID:          uuid.NewString(),
			ChallengeID: challengeID,
			Player1ID:   userID,
			Status:      model.MatchPending,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.cfg.PendingTTL),
		}
		if err := repos.Matches.Create(ctx, m); err != nil {
			return err
		}
		result = &FindOrCreateResult{Match: m.ViewFor(userID), IsNew: true}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find or create match: %w", err)
	}

	s.logger.Info("PvP match ready",
		zap.String("user_id", userID),
		zap.String("match_id", result.Match.ID),
		zap.Bool("is_new", result.IsNew),
		zap.Bool("joined", result.Joined))
	return result, nil
}

type PvPSubmitRequest struct {
	MatchID          string          `json:"-"`
	UserID           string          `json:"-"`
	Code             string          `json:"code"`
	Output           json.RawMessage `json:"output"`
	TimeSpentSeconds int             `json:"timeSpent"`
}

type PvPSubmitResult struct {
	Submitted     bool    `json:"submitted"`
	MatchComplete bool    `json:"matchComplete"`
	WinnerID      *string `json:"winnerId,omitempty"`
	Player1Score  *int    `json:"player1Score,omitempty"`
	Player2Score  *int    `json:"player2Score,omitempty"`
	Score         int     `json:"score"`
}

// checkSubmittable rejects submissions that could never be recorded. A
// match past its expiry takes no more entries even before the sweep
// cancels it.
func checkSubmittable(m *model.Match, userID string, now time.Time) (slot int, err error) {
	if !m.IsParticipant(userID) {
		return 0, fmt.Errorf("match %s: %w", m.ID, common.ErrNotFound)
	}
	if m.Status != model.MatchActive {
		return 0, fmt.Errorf("match %s is %s, not active: %w", m.ID, m.Status, common.ErrConflict)
	}
	if !now.Before(m.ExpiresAt) {
		return 0, fmt.Errorf("match %s expired at %s: %w", m.ID, m.ExpiresAt.Format(time.RFC3339), common.ErrConflict)
	}
	slot = 1
	submitted := m.Player1Submitted
	if m.Player1ID != userID {
		slot, submitted = 2, m.Player2Submitted
	}
	if submitted {
		return 0, fmt.Errorf("already submitted to match %s: %w", m.ID, common.ErrConflict)
	}
	return slot, nil
}

// Submit grades one player's entry. The second entry resolves the match.
func (s *PvPService) Submit(ctx context.Context, req PvPSubmitRequest) (*PvPSubmitResult, error) {
	if req.MatchID == "" {
		return nil, fmt.Errorf("match id is required: %w", common.ErrValidation)
	}
	if err := validateSubmission(req.UserID, req.Code, req.TimeSpentSeconds); err != nil {
		return nil, err
	}

	repos := s.store.Repos()
	match, err := repos.Matches.FindByID(ctx, req.MatchID)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", req.MatchID, err)
	}
	if _, err := checkSubmittable(match, req.UserID, s.now()); err != nil {
		return nil, err
	}
	challenge, err := repos.Challenges.FindByID(ctx, match.ChallengeID)
	if err != nil {
		return nil, fmt.Errorf("challenge %s: %w", match.ChallengeID, err)
	}

	verdict, err := s.grader.Grade(ctx, grader.Submission{Challenge: challenge, Code: req.Code, Output: req.Output})
	if err != nil {
		return nil, err
	}
	score := scoring.Calculate(*verdict, req.TimeSpentSeconds, challenge.Difficulty).Score

	var resolved *model.Match
	result := &PvPSubmitResult{Submitted: true, Score: score}
	err = s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m, err := repos.Matches.LockByID(ctx, req.MatchID)
		if err != nil {
			return fmt.Errorf("match %s: %w", req.MatchID, err)
		}
		// The match may have moved on while grading.
		slot, err := checkSubmittable(m, req.UserID, s.now())
		if err != nil {
			return err
		}

		code, sc := req.Code, score
		if slot == 1 {
			m.Player1Code, m.Player1Score, m.Player1Submitted = &code, &sc, true
		} else {
			m.Player2Code, m.Player2Score, m.Player2Submitted = &code, &sc, true
		}

		if m.Player1Submitted && m.Player2Submitted {
			if err := s.resolve(ctx, repos, m); err != nil {
				return err
			}
			resolved = m
			result.MatchComplete = true
			result.WinnerID = m.WinnerID
			result.Player1Score, result.Player2Score = m.Player1Score, m.Player2Score
		}
		return repos.Matches.Update(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record match submission: %w", err)
	}

	if resolved != nil {
		s.logger.Info("PvP match completed",
			zap.String("match_id", resolved.ID),
			zap.Int("player1_score", *resolved.Player1Score),
			zap.Int("player2_score", *resolved.Player2Score),
			zap.Bool("draw", resolved.WinnerID == nil))
		s.hooks.Dispatch(ctx, hooks.EventPvPCompleted, hooks.Payload{UserID: req.UserID, Data: *resolved})
	}
	return result, nil
}

// resolve completes a match both players submitted to. Equal scores are a
// draw with no winner.
func (s *PvPService) resolve(ctx context.Context, repos repository.Repositories, m *model.Match) error {
	now := s.now().UTC()
	p1, p2 := *m.Player1Score, *m.Player2Score
	switch {
	case p1 > p2:
		winner := m.Player1ID
		m.WinnerID = &winner
	case p2 > p1:
		winner := *m.Player2ID
		m.WinnerID = &winner
	}
	m.Status = model.MatchCompleted
	m.CompletedAt = &now

	if m.WinnerID != nil {
		if _, err := s.ledger.Credit(ctx, repos, *m.WinnerID, int64(s.cfg.WinXP)); err != nil {
			return err
		}
	}

	for _, player := range []string{m.Player1ID, *m.Player2ID} {
		title, message := "It's a draw!", fmt.Sprintf("Both players scored %d.", p1)
		switch {
		case m.WinnerID == nil:
		case *m.WinnerID == player:
			title, message = "Victory!", fmt.Sprintf("You won the match and earned %d XP.", s.cfg.WinXP)
		default:
			title, message = "Defeat", "Your opponent scored higher this time."
		}
		n, err := newNotification(player, model.NotificationPvPResult, title, message,
			map[string]interface{}{"matchId": m.ID, "player1Score": p1, "player2Score": p2, "winnerId": m.WinnerID}, now)
		if err != nil {
			return err
		}
		if err := repos.Notifications.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// GetMatch shows the match to one of its players.
func (s *PvPService) GetMatch(ctx context.Context, matchID, viewerID string) (*model.MatchView, error) {
	repos := s.store.Repos()
	m, err := repos.Matches.FindByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	if !m.IsParticipant(viewerID) {
		return nil, fmt.Errorf("match %s: %w", matchID, common.ErrNotFound)
	}
	view := m.ViewFor(viewerID)
	if c, err := repos.Challenges.FindByID(ctx, m.ChallengeID); err == nil {
		view.ChallengeTitle = c.Title
	}
	return &view, nil
}

// Cancel withdraws a pending match. Only its creator may do so.
func (s *PvPService) Cancel(ctx context.Context, matchID, userID string) (*model.MatchView, error) {
	var view model.MatchView
	err := s.store.RunInTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m, err := repos.Matches.LockByID(ctx, matchID)
		if err != nil {
			return fmt.Errorf("match %s: %w", matchID, err)
		}
		if !m.IsParticipant(userID) {
			return fmt.Errorf("match %s: %w", matchID, common.ErrNotFound)
		}
		if m.Player1ID != userID {
			return fmt.Errorf("only the creator can cancel match %s: %w", matchID, common.ErrForbidden)
		}
		if m.Status != model.MatchPending {
			return fmt.Errorf("match %s is %s, not pending: %w", matchID, m.Status, common.ErrConflict)
		}
		m.Status = model.MatchCancelled
		if err := repos.Matches.Update(ctx, m); err != nil {
			return err
		}
		view = m.ViewFor(userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel match: %w", err)
	}
	return &view, nil
}

func (s *PvPService) ListUserMatches(ctx context.Context, userID string, status model.MatchStatus) ([]model.MatchView, error) {
	switch status {
	case "", model.MatchPending, model.MatchActive, model.MatchCompleted, model.MatchCancelled:
	default:
		return nil, fmt.Errorf("unknown match status %q: %w", status, common.ErrValidation)
	}
	matches, err := s.store.Repos().Matches.ListByUser(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	views := make([]model.MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, m.ViewFor(userID))
	}
	return views, nil
}

// ListChallenges returns the challenges hard enough for a match.
func (s *PvPService) ListChallenges(ctx context.Context) ([]model.Challenge, error) {
	challenges, err := s.store.Repos().Challenges.ListMinDifficulty(ctx, PvPMinDifficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to list pvp challenges: %w", err)
	}
	return challenges, nil
}

func (s *PvPService) Standings(ctx context.Context, limit int) ([]model.PvPStanding, error) {
	if limit <= 0 {
		limit = defaultStandingsLimit
	}
	limit = min(limit, maxStandingsLimit)
	standings, err := s.store.Repos().Matches.Standings(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load pvp standings: %w", err)
	}
	return standings, nil
}

// ExpireStale cancels open matches past their expiry: pending ones nobody
// joined, and active ones a player abandoned.
func (s *PvPService) ExpireStale(ctx context.Context) (int64, error) {
	n, err := s.store.Repos().Matches.ExpireOpen(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire matches: %w", err)
	}
	return n, nil
}
