// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

// InventoryService owns Product.stock, the only field with several writers.
type InventoryService struct {
	store     repository.Store
	publisher events.Publisher
}

type CreateProductRequest struct {
	Title           string          `json:"title" validate:"required,min=2,max=255"`
	Description     string          `json:"description" validate:"max=2000"`
	PacketPrice     decimal.Decimal `json:"packet_price"`
	PacketsPerStrip int             `json:"packets_per_strip" validate:"required,min=1"`
	Stock           int             `json:"stock" validate:"min=0"`
	Images          []string        `json:"images,omitempty" validate:"omitempty,dive,url"`
}

type UpdateProductRequest struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,min=2,max=255"`
	Description     *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	PacketPrice     *decimal.Decimal `json:"packet_price,omitempty"`
	PacketsPerStrip *int             `json:"packets_per_strip,omitempty" validate:"omitempty,min=1"`
	Images          []string         `json:"images,omitempty" validate:"omitempty,dive,url"`
}

type AdjustStockRequest struct {
	Stock  *int   `json:"stock" validate:"required,min=0"`
	Reason string `json:"reason" validate:"max=500"`
}

func NewInventoryService(store repository.Store, publisher events.Publisher) *InventoryService {
	return &InventoryService{
		store:     store,
		publisher: publisher,
	}
}

func (s *InventoryService) CreateProduct(ctx context.Context, adminID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}
	if !req.PacketPrice.IsPositive() {
		return nil, newError(ErrValidation, "packet price must be greater than zero")
	}

	product := &models.Product{
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		PacketPrice:     req.PacketPrice.Round(2),
		PacketsPerStrip: req.PacketsPerStrip,
		Stock:           req.Stock,
		Images:          req.Images,
		CreatedBy:       adminID,
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"product_id": product.ID,
		"stock":      product.Stock,
	}).Info("product created")

	return product, nil
}

func (s *InventoryService) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return product, nil
}

func (s *InventoryService) ListProducts(ctx context.Context, search string) ([]models.Product, error) {
	return s.store.Products().List(ctx, strings.TrimSpace(search))
}

func (s *InventoryService) UpdateProduct(ctx context.Context, productID uuid.UUID, req *UpdateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}
	if req.PacketPrice != nil && !req.PacketPrice.IsPositive() {
		return nil, newError(ErrValidation, "packet price must be greater than zero")
	}

	product, err := s.store.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}

	if req.Title != nil {
		product.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.PacketPrice != nil {
		product.PacketPrice = req.PacketPrice.Round(2)
	}
	if req.PacketsPerStrip != nil {
		product.PacketsPerStrip = *req.PacketsPerStrip
	}
	if req.Images != nil {
		product.Images = req.Images
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteProduct refuses products that dealer requests still point at.
func (s *InventoryService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Products().GetByID(ctx, productID); err != nil {
			return notFoundOr(err, "product")
		}

		count, err := tx.Requests().CountByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if count > 0 {
			return newError(ErrInvalidState, "product has %d dealer requests and cannot be deleted", count)
		}

		return tx.Products().Delete(ctx, productID)
	})
}

// DecrementStock debits strips inside the caller's transaction. The update is
// conditional on stock >= strips, so concurrent debits can never drive stock negative.
func (s *InventoryService) DecrementStock(ctx context.Context, tx repository.Store, productID uuid.UUID, strips int) error {
	if strips < 1 {
		return newError(ErrValidation, "strips must be at least 1")
	}

	ok, err := tx.Products().DecrementStock(ctx, productID, strips)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if ok {
		return nil
	}

	product, err := tx.Products().GetByID(ctx, productID)
	if err != nil {
		return notFoundOr(err, "product")
	}
	return &InsufficientStockError{Available: product.Stock, Requested: strips}
}

// AdjustStock is the admin override: it sets an absolute stock level and is audited.
func (s *InventoryService) AdjustStock(ctx context.Context, adminID, productID uuid.UUID, req *AdjustStockRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	var previous int
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		product, err := tx.Products().GetByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product")
		}
		previous = product.Stock

		if err := tx.Products().SetStock(ctx, productID, *req.Stock); err != nil {
			return err
		}

		return tx.AuditLogs().Create(ctx, &models.AuditLog{
			UserID:       &adminID,
			Action:       "product.stock_adjusted",
			ResourceType: "product",
			ResourceID:   &productID,
			NewValues: models.JSONB{
				"previous_stock": previous,
				"stock":          *req.Stock,
				"reason":         req.Reason,
			},
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"product_id":     productID,
		"admin_id":       adminID,
		"previous_stock": previous,
		"stock":          *req.Stock,
	}).Info("product stock adjusted")

	publish(ctx, s.publisher, events.New(events.TypeStockAdjusted, productID, adminID, map[string]interface{}{
		"previous_stock": previous,
		"stock":          *req.Stock,
	}))

	return s.GetProduct(ctx, productID)
}
