// internal/repository/postgres/dealer_request.go
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
)

type requestRepo struct {
	db *gorm.DB
}

func (r *requestRepo) Create(ctx context.Context, req *models.DealerRequest) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error; err != nil {
		return fmt.Errorf("create dealer request: %w", err)
	}
	return nil
}

func (r *requestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.DealerRequest, error) {
	var req models.DealerRequest
	if err := r.db.WithContext(ctx).Preload("Dealer").Preload("Product").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *requestRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.DealerRequest, error) {
	var req models.DealerRequest
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &req, nil
}

func (r *requestRepo) Save(ctx context.Context, req *models.DealerRequest) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(req).Error; err != nil {
		return fmt.Errorf("save dealer request: %w", err)
	}
	return nil
}

func (r *requestRepo) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DealerRequest{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("update payment status: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *requestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]models.DealerRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DealerRequest{})
	if filter.DealerIDs != nil {
		if len(filter.DealerIDs) == 0 {
			return []models.DealerRequest{}, 0, nil
		}
		query = query.Where("dealer_id IN ?", filter.DealerIDs)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count dealer requests: %w", err)
	}

	query = query.Preload("Dealer").Preload("Product").Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var requests []models.DealerRequest
	if err := query.Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("list dealer requests: %w", err)
	}
	return requests, total, nil
}

func (r *requestRepo) ListApprovedByDealer(ctx context.Context, dealerID uuid.UUID) ([]models.DealerRequest, error) {
	var requests []models.DealerRequest
	if err := r.db.WithContext(ctx).Preload("Product").
		Where("dealer_id = ? AND status = ?", dealerID, models.RequestStatusApproved).
		Order("processed_at DESC, created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, fmt.Errorf("list approved requests: %w", err)
	}
	return requests, nil
}

func (r *requestRepo) SumApprovedStrips(ctx context.Context, dealerID, productID uuid.UUID) (int, error) {
	var total int
	if err := r.db.WithContext(ctx).Model(&models.DealerRequest{}).
		Where("dealer_id = ? AND product_id = ? AND status = ?", dealerID, productID, models.RequestStatusApproved).
		Select("COALESCE(SUM(strips), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum approved strips: %w", err)
	}
	return total, nil
}

func (r *requestRepo) CountByProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DealerRequest{}).
		Where("product_id = ?", productID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count requests by product: %w", err)
	}
	return count, nil
}

func (r *requestRepo) CountByStatus(ctx context.Context, status models.RequestStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DealerRequest{}).
		Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count requests by status: %w", err)
	}
	return count, nil
}

func (r *requestRepo) CountByPaymentStatus(ctx context.Context, status models.PaymentStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DealerRequest{}).
		Where("payment_status = ?", status).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count requests by payment status: %w", err)
	}
	return count, nil
}
