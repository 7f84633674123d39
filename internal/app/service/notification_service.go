package service

import (
	"context"
	"fmt"

	"data_quest/internal/common"
	"data_quest/internal/domain/model"
	"data_quest/internal/domain/repository"

	"github.com/google/uuid"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationService struct {
	store repository.Store
}

func NewNotificationService(store repository.Store) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	limit = min(limit, maxNotificationLimit)
	list, err := s.store.Repos().Notifications.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("notification %q: %w", id, common.ErrNotFound)
	}
	if err := s.store.Repos().Notifications.MarkRead(ctx, userID, id); err != nil {
		return fmt.Errorf("notification %s: %w", id, err)
	}
	return nil
}
