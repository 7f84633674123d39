package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type ChallengeRepository interface {
	FindByID(ctx context.Context, id string) (*model.Challenge, error)
	ListWithProgress(ctx context.Context, userID, islandID string) ([]model.ChallengeWithProgress, error)
	ListMinDifficulty(ctx context.Context, minDifficulty int) ([]model.Challenge, error)
	Upsert(ctx context.Context, c *model.Challenge) error
}

type pgChallengeRepository struct {
	db Querier
}

func NewPgChallengeRepository(db Querier) ChallengeRepository {
	return &pgChallengeRepository{db: db}
}

const challengeColumns = `c.id, c.island_id, c.section_id, c.order_index, c.title, c.story_context, c.description,
       c.difficulty, c.expected_output, c.datasets, c.hints, c.time_estimate, c.xp_reward`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChallenge(row rowScanner, extra ...interface{}) (*model.Challenge, error) {
	c := &model.Challenge{}
	var expected, datasets, hints []byte
	dest := append([]interface{}{
		&c.ID, &c.IslandID, &c.SectionID, &c.OrderIndex, &c.Title, &c.StoryContext, &c.Description,
		&c.Difficulty, &expected, &datasets, &hints, &c.TimeEstimate, &c.XPReward,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(expected, &c.ExpectedOutput); err != nil {
		return nil, fmt.Errorf("decode expected_output of %s: %w", c.ID, err)
	}
	if err := json.Unmarshal(hints, &c.Hints); err != nil {
		return nil, fmt.Errorf("decode hints of %s: %w", c.ID, err)
	}
	c.Datasets = json.RawMessage(datasets)
	return c, nil
}

func (r *pgChallengeRepository) FindByID(ctx context.Context, id string) (*model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c WHERE c.id = $1`
	c, err := scanChallenge(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgChallengeRepository.FindByID: %w", err)
	}
	return c, nil
}

func (r *pgChallengeRepository) ListMinDifficulty(ctx context.Context, minDifficulty int) ([]model.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges c
	          WHERE c.difficulty >= $1
	          ORDER BY c.difficulty, c.island_id, c.order_index`
	return r.list(ctx, "ListMinDifficulty", query, minDifficulty)
}

func (r *pgChallengeRepository) list(ctx context.Context, op, query string, args ...interface{}) ([]model.Challenge, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.%s: %w", op, err)
	}
	defer rows.Close()

	challenges := []model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.%s scan: %w", op, err)
		}
		challenges = append(challenges, *c)
	}
	return challenges, rows.Err()
}

func (r *pgChallengeRepository) ListWithProgress(ctx context.Context, userID, islandID string) ([]model.ChallengeWithProgress, error) {
	query := `SELECT ` + challengeColumns + `, COALESCE(up.completed, FALSE), up.score, up.best_score
	          FROM challenges c
	          LEFT JOIN user_progress up ON up.challenge_id = c.id AND up.user_id = $1
	          WHERE ($2 = '' OR c.island_id = $2)
	          ORDER BY c.island_id, c.order_index`
	rows, err := r.db.QueryContext(ctx, query, userID, islandID)
	if err != nil {
		return nil, fmt.Errorf("pgChallengeRepository.ListWithProgress: %w", err)
	}
	defer rows.Close()

	out := []model.ChallengeWithProgress{}
	for rows.Next() {
		var item model.ChallengeWithProgress
		c, err := scanChallenge(rows, &item.Completed, &item.Score, &item.BestScore)
		if err != nil {
			return nil, fmt.Errorf("pgChallengeRepository.ListWithProgress scan: %w", err)
		}
		item.Challenge = *c
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *pgChallengeRepository) Upsert(ctx context.Context, c *model.Challenge) error {
	expected, err := json.Marshal(c.ExpectedOutput)
	if err != nil {
		return fmt.Errorf("encode expected_output: %w", err)
	}
	hints, err := json.Marshal(c.Hints)
	if err != nil {
		return fmt.Errorf("encode hints: %w", err)
	}
	datasets := c.Datasets
	if len(datasets) == 0 {
		datasets = json.RawMessage(`[]`)
	}

	query := `INSERT INTO challenges (id, island_id, section_id, order_index, title, story_context, description,
	                                  difficulty, expected_output, datasets, hints, time_estimate, xp_reward)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (id) DO UPDATE SET
	              island_id = EXCLUDED.island_id, section_id = EXCLUDED.section_id,
	              order_index = EXCLUDED.order_index, title = EXCLUDED.title,
	              story_context = EXCLUDED.story_context, description = EXCLUDED.description,
	              difficulty = EXCLUDED.difficulty, expected_output = EXCLUDED.expected_output,
	              datasets = EXCLUDED.datasets, hints = EXCLUDED.hints,
	              time_estimate = EXCLUDED.time_estimate, xp_reward = EXCLUDED.xp_reward`
	_, err = r.db.ExecContext(ctx, query, c.ID, c.IslandID, c.SectionID, c.OrderIndex, c.Title, c.StoryContext,
		c.Description, c.Difficulty, string(expected), string(datasets), string(hints), c.TimeEstimate, c.XPReward)
	if err != nil {
		return fmt.Errorf("pgChallengeRepository.Upsert: %w", err)
	}
	return nil
}
