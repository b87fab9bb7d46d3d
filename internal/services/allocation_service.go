// internal/services/allocation_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/lock"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

// AllocationService keeps the dealer to salesman ledger. A dealer's stock is never
// stored: it is the sum of approved request strips minus the sum of allocations.
type AllocationService struct {
	store               repository.Store
	locker              lock.Locker
	notificationService *NotificationService
	publisher           events.Publisher
	ledger              config.LedgerConfig
}

type AllocateStockRequest struct {
	SalesmanID uuid.UUID `json:"salesman_id" validate:"required"`
	ProductID  uuid.UUID `json:"product_id" validate:"required"`
	Strips     int       `json:"strips" validate:"required,min=1"`
	Notes      string    `json:"notes,omitempty" validate:"max=1000"`
}

type AllocationResult struct {
	Allocation     *models.StockAllocation `json:"allocation"`
	TotalAllocated int                     `json:"total_allocated"`
	Available      int                     `json:"available"`
}

// StockLot is one approved request feeding a dealer's stock.
type StockLot struct {
	RequestID  uuid.UUID  `json:"request_id"`
	Strips     int        `json:"strips"`
	ApprovedAt *time.Time `json:"approved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type DealerStockItem struct {
	Product         *models.Product `json:"product"`
	TotalStrips     int             `json:"total_strips"`
	AllocatedStrips int             `json:"allocated_strips"`
	AvailableStrips int             `json:"available_strips"`
	Lots            []StockLot      `json:"lots"`
}

type SalesmanAllocation struct {
	AllocationID uuid.UUID    `json:"allocation_id"`
	Dealer       *models.User `json:"dealer"`
	Strips       int          `json:"strips"`
	Notes        string       `json:"notes,omitempty"`
	AllocatedAt  time.Time    `json:"allocated_at"`
}

type SalesmanStockItem struct {
	Product     *models.Product      `json:"product"`
	TotalStrips int                  `json:"total_strips"`
	Allocations []SalesmanAllocation `json:"allocations"`
}

func NewAllocationService(
	store repository.Store,
	locker lock.Locker,
	notificationService *NotificationService,
	publisher events.Publisher,
	ledger config.LedgerConfig,
) *AllocationService {
	return &AllocationService{
		store:               store,
		locker:              locker,
		notificationService: notificationService,
		publisher:           publisher,
		ledger:              ledger,
	}
}

func allocationLockKey(dealerID, productID uuid.UUID) string {
	return fmt.Sprintf("allocation:%s:%s", dealerID, productID)
}

// Allocate hands strips from the dealer's derived stock to a salesman. The keyed lock
// and the dealer row lock make the read-sum-append sequence atomic per dealer and product.
func (s *AllocationService) Allocate(ctx context.Context, dealerID uuid.UUID, req *AllocateStockRequest) (*AllocationResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}
	if req.SalesmanID == uuid.Nil || req.ProductID == uuid.Nil {
		return nil, newError(ErrValidation, "salesman_id and product_id are required")
	}

	salesman, err := s.store.Users().GetByID(ctx, req.SalesmanID)
	if err != nil {
		return nil, notFoundOr(err, "salesman")
	}
	if salesman.Role != models.RoleSalesman {
		return nil, newError(ErrValidation, "user is not a salesman")
	}
	if salesman.Status != models.UserStatusActive {
		return nil, newError(ErrInvalidState, "salesman is not active")
	}
	if s.ledger.SalesmanCreatorOnly && !salesman.IsCreatedBy(dealerID) {
		return nil, newError(ErrForbidden, "you can only allocate to your own salesmen")
	}

	release, err := s.locker.Obtain(ctx, allocationLockKey(dealerID, req.ProductID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock dealer stock: %w", err)
	}
	defer release()

	allocation := &models.StockAllocation{
		DealerID:   dealerID,
		SalesmanID: req.SalesmanID,
		ProductID:  req.ProductID,
		Strips:     req.Strips,
		Notes:      req.Notes,
	}
	var totalAllocated, available int

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().LockForUpdate(ctx, dealerID); err != nil {
			return notFoundOr(err, "dealer")
		}

		approved, err := tx.Requests().SumApprovedStrips(ctx, dealerID, req.ProductID)
		if err != nil {
			return err
		}
		allocated, err := tx.Allocations().SumAllocatedStrips(ctx, dealerID, req.ProductID)
		if err != nil {
			return err
		}

		available = approved - allocated
		if req.Strips > available {
			return &InsufficientStockError{Available: available, Requested: req.Strips}
		}

		if err := tx.Allocations().Create(ctx, allocation); err != nil {
			return fmt.Errorf("failed to create stock allocation: %w", err)
		}
		totalAllocated = allocated + req.Strips
		available -= req.Strips
		return nil
	})
	if err != nil {
		return nil, err
	}

	allocation.Salesman = salesman
	if product, err := s.store.Products().GetByID(ctx, req.ProductID); err == nil {
		allocation.Product = product
	}

	logger.Get().WithFields(logrus.Fields{
		"allocation_id": allocation.ID,
		"dealer_id":     dealerID,
		"salesman_id":   req.SalesmanID,
		"product_id":    req.ProductID,
		"strips":        req.Strips,
	}).Info("stock allocated")

	s.notificationService.NotifyUser(ctx, req.SalesmanID, NotificationStockAllocated,
		"Stock Allocated",
		fmt.Sprintf("You received %d strips from your dealer", req.Strips),
		"stock_allocation", allocation.ID)
	publish(ctx, s.publisher, events.New(events.TypeAllocationCreated, allocation.ID, dealerID, map[string]interface{}{
		"salesman_id":     req.SalesmanID,
		"product_id":      req.ProductID,
		"strips":          req.Strips,
		"total_allocated": totalAllocated,
	}))

	return &AllocationResult{
		Allocation:     allocation,
		TotalAllocated: totalAllocated,
		Available:      available,
	}, nil
}

// GetDealerStock groups the dealer's approved requests and allocations by product,
// ordered by product title then id.
func (s *AllocationService) GetDealerStock(ctx context.Context, dealerID uuid.UUID) ([]DealerStockItem, error) {
	approved, err := s.store.Requests().ListApprovedByDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.store.Allocations().ListByDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uuid.UUID]*DealerStockItem)
	for _, req := range approved {
		item, ok := byProduct[req.ProductID]
		if !ok {
			item = &DealerStockItem{Product: productOrStub(req.Product, req.ProductID), Lots: []StockLot{}}
			byProduct[req.ProductID] = item
		}
		item.TotalStrips += req.Strips
		item.Lots = append(item.Lots, StockLot{
			RequestID:  req.ID,
			Strips:     req.Strips,
			ApprovedAt: req.ProcessedAt,
			CreatedAt:  req.CreatedAt,
		})
	}
	for _, a := range allocations {
		if item, ok := byProduct[a.ProductID]; ok {
			item.AllocatedStrips += a.Strips
		}
	}

	items := make([]DealerStockItem, 0, len(byProduct))
	for _, item := range byProduct {
		item.AvailableStrips = item.TotalStrips - item.AllocatedStrips
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return productLess(items[i].Product, items[j].Product)
	})
	return items, nil
}

// GetSalesmanStock groups everything the salesman received by product, history newest first.
func (s *AllocationService) GetSalesmanStock(ctx context.Context, salesmanID uuid.UUID) ([]SalesmanStockItem, error) {
	allocations, err := s.store.Allocations().ListBySalesman(ctx, salesmanID)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[uuid.UUID]*SalesmanStockItem)
	for _, a := range allocations {
		item, ok := byProduct[a.ProductID]
		if !ok {
			item = &SalesmanStockItem{Product: productOrStub(a.Product, a.ProductID), Allocations: []SalesmanAllocation{}}
			byProduct[a.ProductID] = item
		}
		item.TotalStrips += a.Strips
		item.Allocations = append(item.Allocations, SalesmanAllocation{
			AllocationID: a.ID,
			Dealer:       a.Dealer,
			Strips:       a.Strips,
			Notes:        a.Notes,
			AllocatedAt:  a.CreatedAt,
		})
	}

	items := make([]SalesmanStockItem, 0, len(byProduct))
	for _, item := range byProduct {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		return productLess(items[i].Product, items[j].Product)
	})
	return items, nil
}

// ListDealerAllocations is the dealer's outgoing history, newest first.
func (s *AllocationService) ListDealerAllocations(ctx context.Context, dealerID uuid.UUID) ([]models.StockAllocation, error) {
	return s.store.Allocations().ListByDealer(ctx, dealerID)
}

// productOrStub keeps grouping stable when the product row is no longer loadable.
func productOrStub(product *models.Product, id uuid.UUID) *models.Product {
	if product != nil {
		return product
	}
	stub := &models.Product{}
	stub.ID = id
	return stub
}

func productLess(a, b *models.Product) bool {
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	return a.ID.String() < b.ID.String()
}
