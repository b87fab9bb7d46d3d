// internal/services/dealer_request_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

type DealerRequestService struct {
	store               repository.Store
	inventory           *InventoryService
	authorization       *AuthorizationService
	notificationService *NotificationService
	publisher           events.Publisher
	ledger              config.LedgerConfig
}

type CreateDealerRequestRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Strips    int       `json:"strips" validate:"required,min=1"`
	Notes     string    `json:"notes,omitempty" validate:"max=1000"`
}

type ProcessRequestRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}

type DealerRequestFilter struct {
	utils.PaginationParams
	DealerID      *uuid.UUID
	Status        *models.RequestStatus
	PaymentStatus *models.PaymentStatus
}

func NewDealerRequestService(
	store repository.Store,
	inventory *InventoryService,
	authorization *AuthorizationService,
	notificationService *NotificationService,
	publisher events.Publisher,
	ledger config.LedgerConfig,
) *DealerRequestService {
	return &DealerRequestService{
		store:               store,
		inventory:           inventory,
		authorization:       authorization,
		notificationService: notificationService,
		publisher:           publisher,
		ledger:              ledger,
	}
}

// CreateRequest records a pending request. The stock check here is advisory only;
// approval re-checks under the row lock.
func (s *DealerRequestService) CreateRequest(ctx context.Context, dealerID uuid.UUID, req *CreateDealerRequestRequest) (*models.DealerRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}
	if req.ProductID == uuid.Nil {
		return nil, newError(ErrValidation, "product_id is required")
	}

	product, err := s.store.Products().GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	if req.Strips > product.Stock {
		return nil, &InsufficientStockError{Available: product.Stock, Requested: req.Strips}
	}

	request := &models.DealerRequest{
		DealerID:      dealerID,
		ProductID:     product.ID,
		Strips:        req.Strips,
		UnitPrice:     product.PacketPrice,
		Status:        models.RequestStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		Notes:         req.Notes,
	}
	if err := s.store.Requests().Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create dealer request: %w", err)
	}

	created, err := s.store.Requests().GetByID(ctx, request.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer request: %w", err)
	}

	s.notificationService.NotifyAdmins(ctx, NotificationRequestCreated,
		"New Dealer Request",
		fmt.Sprintf("A dealer requested %d strips of %s", created.Strips, product.Title),
		"dealer_request", created.ID)
	publish(ctx, s.publisher, events.New(events.TypeRequestCreated, created.ID, dealerID, map[string]interface{}{
		"product_id": created.ProductID,
		"strips":     created.Strips,
	}))

	return created, nil
}

// ApproveRequest debits product stock and marks the request approved in one transaction.
// On a shortfall nothing is written and the request stays pending.
func (s *DealerRequestService) ApproveRequest(ctx context.Context, requestID, adminID uuid.UUID, req *ProcessRequestRequest) (*models.DealerRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return notFoundOr(err, "dealer request")
		}
		if request.Status.IsTerminal() {
			return newError(ErrInvalidState, "request already %s", request.Status)
		}
		if s.ledger.RequireVerifiedPayment && request.PaymentStatus != models.PaymentStatusVerified {
			return newError(ErrInvalidState, "payment must be verified before approval")
		}

		if err := s.inventory.DecrementStock(ctx, tx, request.ProductID, request.Strips); err != nil {
			return err
		}

		now := time.Now()
		request.Status = models.RequestStatusApproved
		request.ProcessedBy = &adminID
		request.ProcessedAt = &now
		if req.Notes != "" {
			request.Notes = req.Notes
		}
		return tx.Requests().Save(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	approved, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer request: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"request_id": approved.ID,
		"dealer_id":  approved.DealerID,
		"product_id": approved.ProductID,
		"strips":     approved.Strips,
		"admin_id":   adminID,
	}).Info("dealer request approved")

	s.notificationService.NotifyUser(ctx, approved.DealerID, NotificationRequestApproved,
		"Request Approved",
		fmt.Sprintf("Your request for %d strips has been approved", approved.Strips),
		"dealer_request", approved.ID)
	publish(ctx, s.publisher, events.New(events.TypeRequestApproved, approved.ID, adminID, map[string]interface{}{
		"dealer_id":  approved.DealerID,
		"product_id": approved.ProductID,
		"strips":     approved.Strips,
	}))

	return approved, nil
}

// CancelRequest closes a pending request without touching stock. Admins may cancel
// any request, dealers only their own.
func (s *DealerRequestService) CancelRequest(ctx context.Context, requestID uuid.UUID, actor Actor, req *ProcessRequestRequest) (*models.DealerRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return notFoundOr(err, "dealer request")
		}

		switch actor.Role {
		case models.RoleAdmin:
		case models.RoleDealer:
			if request.DealerID != actor.ID {
				return newError(ErrForbidden, "you can only cancel your own requests")
			}
		default:
			return newError(ErrForbidden, "role %s cannot cancel requests", actor.Role)
		}

		if request.Status.IsTerminal() {
			return newError(ErrInvalidState, "request already %s", request.Status)
		}

		now := time.Now()
		request.Status = models.RequestStatusCancelled
		request.ProcessedBy = &actor.ID
		request.ProcessedAt = &now
		if req.Notes != "" {
			request.Notes = req.Notes
		}
		return tx.Requests().Save(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer request: %w", err)
	}

	if actor.IsAdmin() {
		s.notificationService.NotifyUser(ctx, cancelled.DealerID, NotificationRequestCancelled,
			"Request Cancelled",
			fmt.Sprintf("Your request for %d strips has been cancelled", cancelled.Strips),
			"dealer_request", cancelled.ID)
	} else {
		s.notificationService.NotifyAdmins(ctx, NotificationRequestCancelled,
			"Request Withdrawn",
			fmt.Sprintf("A dealer withdrew a request for %d strips", cancelled.Strips),
			"dealer_request", cancelled.ID)
	}
	publish(ctx, s.publisher, events.New(events.TypeRequestCancelled, cancelled.ID, actor.ID, map[string]interface{}{
		"dealer_id": cancelled.DealerID,
	}))

	return cancelled, nil
}

func (s *DealerRequestService) GetRequest(ctx context.Context, requestID uuid.UUID, actor Actor) (*models.DealerRequest, error) {
	request, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, "dealer request")
	}

	switch actor.Role {
	case models.RoleAdmin:
		return request, nil
	case models.RoleDealer:
		if request.DealerID == actor.ID {
			return request, nil
		}
	case models.RoleStalkist:
		if request.Dealer != nil && request.Dealer.IsCreatedBy(actor.ID) {
			return request, nil
		}
	}
	return nil, newError(ErrForbidden, "you do not have access to this request")
}

// ListRequests returns the requests visible to the actor, newest first.
func (s *DealerRequestService) ListRequests(ctx context.Context, actor Actor, filter DealerRequestFilter) ([]models.DealerRequest, int64, error) {
	scope, err := s.authorization.DealerScope(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	dealerIDs := scope
	if filter.DealerID != nil {
		if scope != nil && !containsID(scope, *filter.DealerID) {
			dealerIDs = []uuid.UUID{}
		} else {
			dealerIDs = []uuid.UUID{*filter.DealerID}
		}
	}

	repoFilter := repository.RequestFilter{
		DealerIDs:     dealerIDs,
		Status:        filter.Status,
		PaymentStatus: filter.PaymentStatus,
	}
	if filter.Limit > 0 {
		repoFilter.Limit = filter.Limit
		repoFilter.Offset = filter.Offset()
	}

	return s.store.Requests().List(ctx, repoFilter)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
