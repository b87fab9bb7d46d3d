// internal/repository/postgres/allocation.go
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/distro-backend/internal/models"
)

type allocationRepo struct {
	db *gorm.DB
}

func (r *allocationRepo) Create(ctx context.Context, allocation *models.StockAllocation) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(allocation).Error; err != nil {
		return fmt.Errorf("create stock allocation: %w", err)
	}
	return nil
}

func (r *allocationRepo) SumAllocatedStrips(ctx context.Context, dealerID, productID uuid.UUID) (int, error) {
	var total int
	if err := r.db.WithContext(ctx).Model(&models.StockAllocation{}).
		Where("dealer_id = ? AND product_id = ?", dealerID, productID).
		Select("COALESCE(SUM(strips), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum allocated strips: %w", err)
	}
	return total, nil
}

func (r *allocationRepo) ListByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.StockAllocation, error) {
	var allocations []models.StockAllocation
	if err := r.db.WithContext(ctx).Preload("Salesman").Preload("Product").
		Where("dealer_id = ?", dealerID).
		Order("created_at DESC").
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("list dealer allocations: %w", err)
	}
	return allocations, nil
}

func (r *allocationRepo) ListBySalesman(ctx context.Context, salesmanID uuid.UUID) ([]models.StockAllocation, error) {
	var allocations []models.StockAllocation
	if err := r.db.WithContext(ctx).Preload("Dealer").Preload("Product").
		Where("salesman_id = ?", salesmanID).
		Order("created_at DESC").
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("list salesman allocations: %w", err)
	}
	return allocations, nil
}
