// internal/services/notification_service.go
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

const (
	NotificationRequestCreated   = "dealer_request_created"
	NotificationRequestApproved  = "dealer_request_approved"
	NotificationRequestCancelled = "dealer_request_cancelled"
	NotificationReceiptUploaded  = "payment_receipt_uploaded"
	NotificationPaymentVerified  = "payment_verified"
	NotificationPaymentRejected  = "payment_rejected"
	NotificationStockAllocated   = "stock_allocated"

	defaultNotificationLimit = 50
)

type NotificationService struct {
	store repository.Store
}

type NotificationRequest struct {
	UserID       *uuid.UUID
	Type         string
	Title        string
	Message      string
	ResourceType string
	ResourceID   *uuid.UUID
}

func NewNotificationService(store repository.Store) *NotificationService {
	return &NotificationService{store: store}
}

// Send stores the notification. It runs after the ledger change committed, so a
// failure here is logged and never reported to the caller.
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) {
	notification := &models.Notification{
		UserID:              req.UserID,
		Type:                req.Type,
		Title:               req.Title,
		Message:             req.Message,
		RelatedResourceType: req.ResourceType,
		RelatedResourceID:   req.ResourceID,
	}

	if err := s.store.Notifications().Create(ctx, notification); err != nil {
		logger.LogError("services", "NotificationService.Send", "failed to create notification", req.Type, err)
	}
}

// NotifyAdmins addresses every admin at once.
func (s *NotificationService) NotifyAdmins(ctx context.Context, notificationType, title, message, resourceType string, resourceID uuid.UUID) {
	s.Send(ctx, NotificationRequest{
		Type:         notificationType,
		Title:        title,
		Message:      message,
		ResourceType: resourceType,
		ResourceID:   &resourceID,
	})
}

func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, notificationType, title, message, resourceType string, resourceID uuid.UUID) {
	s.Send(ctx, NotificationRequest{
		UserID:       &userID,
		Type:         notificationType,
		Title:        title,
		Message:      message,
		ResourceType: resourceType,
		ResourceID:   &resourceID,
	})
}

func (s *NotificationService) List(ctx context.Context, actor Actor, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultNotificationLimit
	}
	return s.store.Notifications().ListForUser(ctx, actor.ID, actor.IsAdmin(), limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, notificationID uuid.UUID) error {
	ok, err := s.store.Notifications().MarkRead(ctx, notificationID, actor.ID, actor.IsAdmin())
	if err != nil {
		return err
	}
	if !ok {
		return newError(ErrNotFound, "notification not found")
	}
	return nil
}
