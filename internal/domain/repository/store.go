package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so a repository works
// the same inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Repositories struct {
	Users         UserRepository
	Challenges    ChallengeRepository
	Progress      ProgressRepository
	Streaks       StreakRepository
	Achievements  AchievementRepository
	Milestones    MilestoneRepository
	Matches       MatchRepository
	Notifications NotificationRepository
}

// Store hands out repositories bound either to the pool or to a transaction.
type Store interface {
	Repos() Repositories
	// RunInTx commits when fn returns nil and rolls back otherwise. Callbacks
	// registered with OnRollback on fn's ctx run after a rollback.
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

type txKey struct{}

type txState struct {
	undo []func(ctx context.Context)
}

// OnRollback registers fn to undo a write made outside the database if the
// transaction carried by ctx does not commit. Outside RunInTx it is a no-op.
func OnRollback(ctx context.Context, fn func(ctx context.Context)) {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		st.undo = append(st.undo, fn)
	}
}

func withTx(ctx context.Context) (context.Context, *txState) {
	st := &txState{}
	return context.WithValue(ctx, txKey{}, st), st
}

// rollback runs the undo callbacks newest first. They run even when ctx was
// cancelled, since that is often why the transaction failed.
func (st *txState) rollback(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(st.undo) - 1; i >= 0; i-- {
		st.undo[i](ctx)
	}
}

type PgStore struct {
	db *sql.DB
}

func NewPgStore(db *sql.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Repos() Repositories {
	return pgRepositories(s.db)
}

func (s *PgStore) RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txCtx, st := withTx(ctx)
	if err := fn(txCtx, pgRepositories(tx)); err != nil {
		st.rollback(ctx)
		return err
	}

	if err := tx.Commit(); err != nil {
		st.rollback(ctx)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func pgRepositories(q Querier) Repositories {
	return Repositories{
		Users:         NewPgUserRepository(q),
		Challenges:    NewPgChallengeRepository(q),
		Progress:      NewPgProgressRepository(q),
		Streaks:       NewPgStreakRepository(q),
		Achievements:  NewPgAchievementRepository(q),
		Milestones:    NewPgMilestoneRepository(q),
		Matches:       NewPgMatchRepository(q),
		Notifications: NewPgNotificationRepository(q),
	}
}
