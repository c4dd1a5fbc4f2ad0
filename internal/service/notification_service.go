package service

import (
	"context"
	"errors"

	"github.com/mlunin-git/coaching-platform-sub000/internal/model"
	"github.com/mlunin-git/coaching-platform-sub000/internal/repository"
)

var ErrNotificationNotFound = errors.New("notification not found")

const defaultNotificationLimit = 50

type NotificationService struct {
	repo *repository.NotificationRepository
}

func NewNotificationService(repo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, userID, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int) error {
	rows, err := s.repo.MarkRead(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}
