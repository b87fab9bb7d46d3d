// internal/repository/postgres/product.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/distro-backend/internal/models"
)

type productRepo struct {
	db *gorm.DB
}

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepo) List(ctx context.Context, search string) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	var products []models.Product
	if err := query.Order("title ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	// stock is owned by the ledger and is never written through a plain update
	err := r.db.WithContext(ctx).Model(product).
		Select("title", "description", "packet_price", "packets_per_strip", "images").
		Updates(product).Error
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, strips int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, strips).
		UpdateColumn("stock", gorm.Expr("stock - ?", strips))
	if result.Error != nil {
		return false, fmt.Errorf("decrement stock: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *productRepo) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", stock)
	if result.Error != nil {
		return fmt.Errorf("set stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *productRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (r *productRepo) TotalStock(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("COALESCE(SUM(stock), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return total, nil
}
