package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type MatchRepository interface {
	Create(ctx context.Context, m *model.Match) error
	FindByID(ctx context.Context, id string) (*model.Match, error)
	// LockByID reads the match FOR UPDATE.
	LockByID(ctx context.Context, id string) (*model.Match, error)
	// FindOpenForUser returns the user's unexpired pending or active match on a challenge.
	FindOpenForUser(ctx context.Context, userID, challengeID string, now time.Time) (*model.Match, error)
	// LockJoinable locks the oldest unexpired pending match on the challenge
	// created by someone other than userID. Rows locked by a concurrent
	// joiner are skipped.
	LockJoinable(ctx context.Context, challengeID, userID string, now time.Time) (*model.Match, error)
	Update(ctx context.Context, m *model.Match) error
	ListByUser(ctx context.Context, userID string, status model.MatchStatus) ([]model.Match, error)
	// ExpireOpen cancels pending and active matches whose expiry has passed.
	// Nobody is paid for a cancelled match.
	ExpireOpen(ctx context.Context, now time.Time) (int64, error)
	Standings(ctx context.Context, limit int) ([]model.PvPStanding, error)
}

type pgMatchRepository struct {
	db Querier
}

func NewPgMatchRepository(db Querier) MatchRepository {
	return &pgMatchRepository{db: db}
}

const matchColumns = `id, challenge_id, player1_id, player2_id, status, player1_code, player2_code,
       player1_score, player2_score, player1_submitted, player2_submitted, winner_id,
       created_at, started_at, completed_at, expires_at`

func scanMatch(row rowScanner) (*model.Match, error) {
	m := &model.Match{}
	err := row.Scan(&m.ID, &m.ChallengeID, &m.Player1ID, &m.Player2ID, &m.Status, &m.Player1Code, &m.Player2Code,
		&m.Player1Score, &m.Player2Score, &m.Player1Submitted, &m.Player2Submitted, &m.WinnerID,
		&m.CreatedAt, &m.StartedAt, &m.CompletedAt, &m.ExpiresAt)
	return m, err
}

func (r *pgMatchRepository) one(ctx context.Context, op, query string, args ...interface{}) (*model.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgMatchRepository.%s: %w", op, err)
	}
	return m, nil
}

func (r *pgMatchRepository) Create(ctx context.Context, m *model.Match) error {
	query := `INSERT INTO pvp_matches (id, challenge_id, player1_id, status, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.ChallengeID, m.Player1ID, m.Status, m.CreatedAt, m.ExpiresAt); err != nil {
		return fmt.Errorf("pgMatchRepository.Create: %w", err)
	}
	return nil
}

func (r *pgMatchRepository) FindByID(ctx context.Context, id string) (*model.Match, error) {
	return r.one(ctx, "FindByID", `SELECT `+matchColumns+` FROM pvp_matches WHERE id = $1`, id)
}

func (r *pgMatchRepository) LockByID(ctx context.Context, id string) (*model.Match, error) {
	return r.one(ctx, "LockByID", `SELECT `+matchColumns+` FROM pvp_matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgMatchRepository) FindOpenForUser(ctx context.Context, userID, challengeID string, now time.Time) (*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM pvp_matches
	          WHERE challenge_id = $1
	            AND (player1_id = $2 OR player2_id = $2)
	            AND status IN ('pending', 'active')
	            AND expires_at > $3
	          ORDER BY created_at DESC
	          LIMIT 1`
	return r.one(ctx, "FindOpenForUser", query, challengeID, userID, now)
}

func (r *pgMatchRepository) LockJoinable(ctx context.Context, challengeID, userID string, now time.Time) (*model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM pvp_matches
	          WHERE challenge_id = $1
	            AND status = 'pending'
	            AND player1_id <> $2
	            AND player2_id IS NULL
	            AND expires_at > $3
	          ORDER BY created_at ASC
	          LIMIT 1
	          FOR UPDATE SKIP LOCKED`
	return r.one(ctx, "LockJoinable", query, challengeID, userID, now)
}

func (r *pgMatchRepository) Update(ctx context.Context, m *model.Match) error {
	query := `UPDATE pvp_matches SET
	              player2_id = $1, status = $2, player1_code = $3, player2_code = $4,
	              player1_score = $5, player2_score = $6, player1_submitted = $7, player2_submitted = $8,
	              winner_id = $9, started_at = $10, completed_at = $11, expires_at = $12
	          WHERE id = $13`
	res, err := r.db.ExecContext(ctx, query, m.Player2ID, m.Status, m.Player1Code, m.Player2Code,
		m.Player1Score, m.Player2Score, m.Player1Submitted, m.Player2Submitted,
		m.WinnerID, m.StartedAt, m.CompletedAt, m.ExpiresAt, m.ID)
	if err != nil {
		return fmt.Errorf("pgMatchRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgMatchRepository) ListByUser(ctx context.Context, userID string, status model.MatchStatus) ([]model.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM pvp_matches
	          WHERE (player1_id = $1 OR player2_id = $1)
	            AND ($2 = '' OR status = $2)
	          ORDER BY created_at DESC
	          LIMIT 50`
	rows, err := r.db.QueryContext(ctx, query, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("pgMatchRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	matches := []model.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("pgMatchRepository.ListByUser scan: %w", err)
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func (r *pgMatchRepository) ExpireOpen(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pvp_matches SET status = 'cancelled' WHERE status IN ('pending', 'active') AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pgMatchRepository.ExpireOpen: %w", err)
	}
	return res.RowsAffected()
}

func (r *pgMatchRepository) Standings(ctx context.Context, limit int) ([]model.PvPStanding, error) {
	query := `WITH results AS (
	              SELECT player1_id AS user_id, winner_id FROM pvp_matches WHERE status = 'completed'
	              UNION ALL
	              SELECT player2_id AS user_id, winner_id FROM pvp_matches WHERE status = 'completed'
	          )
	          SELECT u.id, u.username,
	                 COUNT(*) FILTER (WHERE r.winner_id = r.user_id)                        AS wins,
	                 COUNT(*) FILTER (WHERE r.winner_id IS NOT NULL AND r.winner_id <> r.user_id) AS losses,
	                 COUNT(*) FILTER (WHERE r.winner_id IS NULL)                            AS draws
	          FROM results r
	          JOIN users u ON u.id = r.user_id
	          GROUP BY u.id, u.username
	          ORDER BY wins DESC, draws DESC, u.username ASC
	          LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgMatchRepository.Standings: %w", err)
	}
	defer rows.Close()

	out := []model.PvPStanding{}
	for rows.Next() {
		var s model.PvPStanding
		if err := rows.Scan(&s.UserID, &s.Username, &s.Wins, &s.Losses, &s.Draws); err != nil {
			return nil, fmt.Errorf("pgMatchRepository.Standings scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
