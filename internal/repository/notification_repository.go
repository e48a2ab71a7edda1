package repository

import (
	"context"

	"github.com/lakshayybhati/liftor-worker/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository stores in-app notifications and reads push tokens.
type NotificationRepository interface {
	// ListPushTokens returns at most limit registered tokens for the user.
	ListPushTokens(ctx context.Context, userID string, limit int) ([]string, error)
	Insert(ctx context.Context, notification *model.UserNotification) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListPushTokens(ctx context.Context, userID string, limit int) ([]string, error) {
	var tokens []string
	err := r.db.WithContext(ctx).Model(&model.UserPushToken{}).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Limit(limit).
		Pluck("token", &tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *notificationRepository) Insert(ctx context.Context, notification *model.UserNotification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}
