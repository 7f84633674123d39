package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// LockByID reads the user row FOR UPDATE; only meaningful inside a transaction.
	LockByID(ctx context.Context, id string) (*model.User, error)
	// AddXP adds delta to total_xp and returns the new total.
	AddXP(ctx context.Context, id string, delta int64) (int64, error)
	ListXP(ctx context.Context) ([]model.UserXP, error)
	// ListByXPRange pages through users with minXP <= total_xp < maxXP,
	// highest first. maxXP 0 means no upper bound.
	ListByXPRange(ctx context.Context, minXP, maxXP int64, limit, offset int) ([]model.UserXP, error)
	Usernames(ctx context.Context, ids []string) (map[string]string, error)
}

type pgUserRepository struct {
	db Querier
}

func NewPgUserRepository(db Querier) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, username, email, hashed_password, role, total_xp, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role, &user.TotalXP, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role, total_xp, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role, user.TotalXP, user.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, where string, arg interface{}) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", `email = $1`, email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", `username = $1`, username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", `id = $1`, id)
}

func (r *pgUserRepository) LockByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "LockByID", `id = $1 FOR UPDATE`, id)
}

func (r *pgUserRepository) AddXP(ctx context.Context, id string, delta int64) (int64, error) {
	query := `UPDATE users SET total_xp = total_xp + $1, updated_at = NOW() WHERE id = $2 RETURNING total_xp`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, delta, id).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("pgUserRepository.AddXP: %w", err)
	}
	return total, nil
}

func (r *pgUserRepository) ListXP(ctx context.Context) ([]model.UserXP, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, total_xp FROM users WHERE total_xp > 0`)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListXP: %w", err)
	}
	defer rows.Close()

	out := []model.UserXP{}
	for rows.Next() {
		var u model.UserXP
		if err := rows.Scan(&u.UserID, &u.Username, &u.TotalXP); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListXP scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *pgUserRepository) ListByXPRange(ctx context.Context, minXP, maxXP int64, limit, offset int) ([]model.UserXP, error) {
	query := `SELECT id, username, total_xp FROM users
	          WHERE total_xp >= $1 AND ($2::bigint = 0 OR total_xp < $2)
	          ORDER BY total_xp DESC, username
	          LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, query, minXP, maxXP, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListByXPRange: %w", err)
	}
	defer rows.Close()

	out := []model.UserXP{}
	for rows.Next() {
		var u model.UserXP
		if err := rows.Scan(&u.UserID, &u.Username, &u.TotalXP); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListByXPRange scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *pgUserRepository) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, username FROM users WHERE id::text = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.Usernames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("pgUserRepository.Usernames scan: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
