// internal/repository/postgres/notification.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/distro-backend/internal/models"
)

type notificationRepo struct {
	db *gorm.DB
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID uuid.UUID, includeBroadcast bool, limit int) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{})
	if includeBroadcast {
		query = query.Where("user_id = ? OR user_id IS NULL", userID)
	} else {
		query = query.Where("user_id = ?", userID)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, includeBroadcast bool) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", id)
	if includeBroadcast {
		query = query.Where("user_id = ? OR user_id IS NULL", userID)
	} else {
		query = query.Where("user_id = ?", userID)
	}

	result := query.UpdateColumn("read_at", time.Now())
	if result.Error != nil {
		return false, fmt.Errorf("mark notification read: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

type auditLogRepo struct {
	db *gorm.DB
}

func (r *auditLogRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
