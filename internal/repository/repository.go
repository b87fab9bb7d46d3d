// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/models"
)

// ErrNotFound is returned by every repository when the row does not exist.
var ErrNotFound = errors.New("record not found")

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, search string) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DecrementStock subtracts strips only when stock >= strips and reports whether a row matched.
	DecrementStock(ctx context.Context, id uuid.UUID, strips int) (bool, error)
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	Count(ctx context.Context) (int64, error)
	TotalStock(ctx context.Context) (int64, error)
}

type RequestFilter struct {
	DealerIDs     []uuid.UUID
	Status        *models.RequestStatus
	PaymentStatus *models.PaymentStatus
	Offset        int
	Limit         int
}

type DealerRequestRepository interface {
	Create(ctx context.Context, req *models.DealerRequest) error
	// GetByID loads the request with Dealer and Product populated.
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealerRequest, error)
	// GetForUpdate loads the request and holds its row lock until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.DealerRequest, error)
	Save(ctx context.Context, req *models.DealerRequest) error
	// UpdatePaymentStatus applies updates only while payment_status still equals from.
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from models.PaymentStatus, updates map[string]interface{}) (bool, error)
	// List returns requests newest first, plus the total before pagination.
	List(ctx context.Context, filter RequestFilter) ([]models.DealerRequest, int64, error)
	ListApprovedByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.DealerRequest, error)
	SumApprovedStrips(ctx context.Context, dealerID, productID uuid.UUID) (int, error)
	CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error)
	CountByStatus(ctx context.Context, status models.RequestStatus) (int64, error)
	CountByPaymentStatus(ctx context.Context, status models.PaymentStatus) (int64, error)
}

type StockAllocationRepository interface {
	Create(ctx context.Context, allocation *models.StockAllocation) error
	SumAllocatedStrips(ctx context.Context, dealerID, productID uuid.UUID) (int, error)
	ListByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.StockAllocation, error)
	ListBySalesman(ctx context.Context, salesmanID uuid.UUID) ([]models.StockAllocation, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// LockForUpdate holds the user's row lock until the transaction ends.
	LockForUpdate(ctx context.Context, id uuid.UUID) error
	ListByCreator(ctx context.Context, creatorID *uuid.UUID, role *models.Role) ([]models.User, error)
	CountByRole(ctx context.Context) (map[models.Role]int64, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, includeBroadcast bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID, includeBroadcast bool) (bool, error)
}

type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Store groups the repositories. Repositories obtained inside Transaction share its unit of work.
type Store interface {
	Products() ProductRepository
	Requests() DealerRequestRepository
	Allocations() StockAllocationRepository
	Users() UserRepository
	Notifications() NotificationRepository
	AuditLogs() AuditLogRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
