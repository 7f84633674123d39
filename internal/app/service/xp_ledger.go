package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"data_quest/internal/domain/repository"
	"data_quest/internal/platform/leaderboard"
)

// XPLedger is the one path XP takes: users.total_xp first, then the same
// delta onto the leaderboard. The board write is undone if the surrounding
// transaction rolls back, so the board never shows XP the database lost.
type XPLedger struct {
	board  leaderboard.Store
	logger *zap.Logger
}

func NewXPLedger(board leaderboard.Store, logger *zap.Logger) *XPLedger {
	return &XPLedger{board: board, logger: logger}
}

// Credit returns the user's new total. A non-positive delta is a no-op.
// ctx must be the one RunInTx passed to the caller.
func (l *XPLedger) Credit(ctx context.Context, repos repository.Repositories, userID string, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, nil
	}
	total, err := repos.Users.AddXP(ctx, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("failed to credit xp: %w", err)
	}
	if _, err := l.board.IncrBy(ctx, userID, delta); err != nil {
		return 0, fmt.Errorf("failed to update leaderboard: %w", err)
	}
	repository.OnRollback(ctx, func(ctx context.Context) {
		if _, err := l.board.IncrBy(ctx, userID, -delta); err != nil {
			l.logger.Warn("Failed to revert leaderboard credit; rebuild will repair it",
				zap.String("user_id", userID),
				zap.Int64("delta", delta),
				zap.Error(err))
		}
	})
	return total, nil
}
