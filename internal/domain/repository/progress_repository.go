package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type ProgressRepository interface {
	Find(ctx context.Context, userID, challengeID string) (*model.UserProgress, error)
	Insert(ctx context.Context, p *model.UserProgress) error
	Update(ctx context.Context, p *model.UserProgress) error
	Stats(ctx context.Context, userID string) (*model.ProgressStats, error)
	// ListByUser returns every attempted challenge, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]model.ProgressEntry, error)
	// IslandStandings ranks users with at least one completed challenge on
	// the island by the sum of their best scores there.
	IslandStandings(ctx context.Context, islandID string, limit int) ([]model.IslandStanding, error)
}

type pgProgressRepository struct {
	db Querier
}

func NewPgProgressRepository(db Querier) ProgressRepository {
	return &pgProgressRepository{db: db}
}

func (r *pgProgressRepository) Find(ctx context.Context, userID, challengeID string) (*model.UserProgress, error) {
	query := `SELECT user_id, challenge_id, completed, score, best_score, attempts, best_time, last_code, completed_at, updated_at
	          FROM user_progress WHERE user_id = $1 AND challenge_id = $2`
	p := &model.UserProgress{}
	err := r.db.QueryRowContext(ctx, query, userID, challengeID).Scan(
		&p.UserID, &p.ChallengeID, &p.Completed, &p.Score, &p.BestScore, &p.Attempts,
		&p.BestTime, &p.LastCode, &p.CompletedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProgressRepository.Find: %w", err)
	}
	return p, nil
}

func (r *pgProgressRepository) Insert(ctx context.Context, p *model.UserProgress) error {
	query := `INSERT INTO user_progress (user_id, challenge_id, completed, score, best_score, attempts, best_time, last_code, completed_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, p.UserID, p.ChallengeID, p.Completed, p.Score, p.BestScore,
		p.Attempts, p.BestTime, p.LastCode, p.CompletedAt, p.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("progress for %s already exists: %w", p.ChallengeID, common.ErrConflict)
		}
		return fmt.Errorf("pgProgressRepository.Insert: %w", err)
	}
	return nil
}

func (r *pgProgressRepository) Update(ctx context.Context, p *model.UserProgress) error {
	query := `UPDATE user_progress
	          SET completed = $1, score = $2, best_score = $3, attempts = $4, best_time = $5,
	              last_code = $6, completed_at = $7, updated_at = $8
	          WHERE user_id = $9 AND challenge_id = $10`
	res, err := r.db.ExecContext(ctx, query, p.Completed, p.Score, p.BestScore, p.Attempts, p.BestTime,
		p.LastCode, p.CompletedAt, p.UpdatedAt, p.UserID, p.ChallengeID)
	if err != nil {
		return fmt.Errorf("pgProgressRepository.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProgressRepository) Stats(ctx context.Context, userID string) (*model.ProgressStats, error) {
	stats := &model.ProgressStats{
		CompletedByIsle: map[string]int{},
		TotalByIsle:     map[string]int{},
	}

	query := `SELECT COUNT(*) FILTER (WHERE completed),
	                 COUNT(*),
	                 COUNT(*) FILTER (WHERE best_score >= $2),
	                 COUNT(*) FILTER (WHERE completed AND best_time < $3),
	                 COALESCE(SUM(best_score), 0),
	                 COALESCE(AVG(best_score), 0)::float8
	          FROM user_progress WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID, model.PerfectScore, model.FastSolveSeconds).
		Scan(&stats.Completed, &stats.Attempted, &stats.Perfect, &stats.FastSolves,
			&stats.TotalBestScore, &stats.AvgBestScore); err != nil {
		return nil, fmt.Errorf("pgProgressRepository.Stats: %w", err)
	}

	islands := `SELECT c.island_id, COUNT(c.id), COUNT(up.challenge_id)
	            FROM challenges c
	            LEFT JOIN user_progress up ON up.challenge_id = c.id AND up.user_id = $1 AND up.completed
	            GROUP BY c.island_id`
	rows, err := r.db.QueryContext(ctx, islands, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.Stats islands: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var island string
		var total, done int
		if err := rows.Scan(&island, &total, &done); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.Stats scan: %w", err)
		}
		stats.TotalByIsle[island] = total
		stats.CompletedByIsle[island] = done
	}
	return stats, rows.Err()
}

func (r *pgProgressRepository) ListByUser(ctx context.Context, userID string) ([]model.ProgressEntry, error) {
	query := `SELECT up.user_id, up.challenge_id, up.completed, up.score, up.best_score, up.attempts,
	                 up.best_time, up.last_code, up.completed_at, up.updated_at,
	                 c.island_id, c.section_id, c.title, c.difficulty
	          FROM user_progress up
	          JOIN challenges c ON c.id = up.challenge_id
	          WHERE up.user_id = $1
	          ORDER BY up.updated_at DESC, up.challenge_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	out := []model.ProgressEntry{}
	for rows.Next() {
		var e model.ProgressEntry
		if err := rows.Scan(&e.UserID, &e.ChallengeID, &e.Completed, &e.Score, &e.BestScore, &e.Attempts,
			&e.BestTime, &e.LastCode, &e.CompletedAt, &e.UpdatedAt,
			&e.IslandID, &e.SectionID, &e.Title, &e.Difficulty); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.ListByUser scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgProgressRepository) IslandStandings(ctx context.Context, islandID string, limit int) ([]model.IslandStanding, error) {
	query := `SELECT u.id, u.username, COUNT(*) FILTER (WHERE up.completed), COALESCE(SUM(up.best_score), 0)
	          FROM user_progress up
	          JOIN challenges c ON c.id = up.challenge_id AND c.island_id = $1
	          JOIN users u ON u.id = up.user_id
	          GROUP BY u.id, u.username
	          HAVING COUNT(*) FILTER (WHERE up.completed) > 0
	          ORDER BY 4 DESC, 3 DESC, u.username
	          LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, islandID, limit)
	if err != nil {
		return nil, fmt.Errorf("pgProgressRepository.IslandStandings: %w", err)
	}
	defer rows.Close()

	out := []model.IslandStanding{}
	for rows.Next() {
		s := model.IslandStanding{Rank: int64(len(out) + 1)}
		if err := rows.Scan(&s.UserID, &s.Username, &s.Completed, &s.IslandScore); err != nil {
			return nil, fmt.Errorf("pgProgressRepository.IslandStandings scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
