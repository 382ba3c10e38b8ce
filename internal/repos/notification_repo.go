package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"gorm.io/gorm"
)

type NotificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

type NotificationFilter struct {
	// UserID limits results to one subject. System-wide rows (NULL user)
	// are included as well when IncludeSystem is set.
	UserID        *uint
	IncludeSystem bool
	Type          models.NotificationType
	Status        models.NotificationStatus
	Limit         int
}

func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) List(ctx context.Context, f NotificationFilter) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{})

	if f.UserID != nil {
		if f.IncludeSystem {
			q = q.Where("user_id = ? OR user_id IS NULL", *f.UserID)
		} else {
			q = q.Where("user_id = ?", *f.UserID)
		}
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return rows, nil
}

func (r *NotificationRepo) Get(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).First(&n, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification %d: %w", id, err)
	}
	return &n, nil
}

// MarkRead flips status to READ. It is the only mutation a notification sees.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("status", models.NotificationRead).Error
	if err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}
