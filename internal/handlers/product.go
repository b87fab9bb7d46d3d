// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type ProductHandler struct {
	inventoryService *services.InventoryService
}

func NewProductHandler(inventoryService *services.InventoryService) *ProductHandler {
	return &ProductHandler{
		inventoryService: inventoryService,
	}
}

// GET /products?search=
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.inventoryService.ListProducts(c.Request.Context(), c.Query("search"))
	if err != nil {
		handleServiceError(c, "ProductHandler.ListProducts", err)
		return
	}

	utils.SuccessResponse(c, products)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.inventoryService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		handleServiceError(c, "ProductHandler.GetProduct", err)
		return
	}

	utils.SuccessResponse(c, product)
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.inventoryService.CreateProduct(c.Request.Context(), actor.ID, &req)
	if err != nil {
		handleServiceError(c, "ProductHandler.CreateProduct", err)
		return
	}

	utils.CreatedResponse(c, i18n.KeyProductCreated, product)
}

// PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.inventoryService.UpdateProduct(c.Request.Context(), productID, &req)
	if err != nil {
		handleServiceError(c, "ProductHandler.UpdateProduct", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductUpdated, product)
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	if err := h.inventoryService.DeleteProduct(c.Request.Context(), productID); err != nil {
		handleServiceError(c, "ProductHandler.DeleteProduct", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductDeleted, nil)
}

// PUT /products/:id/stock
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.AdjustStockRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.inventoryService.AdjustStock(c.Request.Context(), actor.ID, productID, &req)
	if err != nil {
		handleServiceError(c, "ProductHandler.AdjustStock", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyProductStockUpdated, product)
}
