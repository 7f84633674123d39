package repository

import (
	"context"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type pgNotificationRepository struct {
	db Querier
}

func NewPgNotificationRepository(db Querier) NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	data := n.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	query := `INSERT INTO notifications (id, user_id, notification_type, title, message, data, read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, string(data), n.Read, n.CreatedAt); err != nil {
		return fmt.Errorf("pgNotificationRepository.Create: %w", err)
	}
	return nil
}

func (r *pgNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT id, user_id, notification_type, title, message, data, read, created_at
	          FROM notifications
	          WHERE user_id = $1 AND (NOT $2 OR NOT read)
	          ORDER BY created_at DESC
	          LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("pgNotificationRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgNotificationRepository.ListByUser scan: %w", err)
		}
		n.Data = data
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("pgNotificationRepository.MarkRead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
