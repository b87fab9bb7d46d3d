// internal/handlers/allocation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type AllocationHandler struct {
	allocationService *services.AllocationService
}

func NewAllocationHandler(allocationService *services.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// POST /stock-allocation/allocate
func (h *AllocationHandler) Allocate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.AllocateStockRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.allocationService.Allocate(c.Request.Context(), actor.ID, &req)
	if err != nil {
		handleServiceError(c, "AllocationHandler.Allocate", err)
		return
	}

	utils.CreatedResponse(c, i18n.KeyStockAllocated, result)
}

// GET /stock-allocation/dealer/stock
func (h *AllocationHandler) DealerStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stock, err := h.allocationService.GetDealerStock(c.Request.Context(), actor.ID)
	if err != nil {
		handleServiceError(c, "AllocationHandler.DealerStock", err)
		return
	}

	utils.SuccessResponse(c, stock)
}

// GET /stock-allocation/dealer/allocations
func (h *AllocationHandler) DealerAllocations(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	allocations, err := h.allocationService.ListDealerAllocations(c.Request.Context(), actor.ID)
	if err != nil {
		handleServiceError(c, "AllocationHandler.DealerAllocations", err)
		return
	}

	utils.SuccessResponse(c, allocations)
}

// GET /stock-allocation/salesman/stock
func (h *AllocationHandler) SalesmanStock(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stock, err := h.allocationService.GetSalesmanStock(c.Request.Context(), actor.ID)
	if err != nil {
		handleServiceError(c, "AllocationHandler.SalesmanStock", err)
		return
	}

	utils.SuccessResponse(c, stock)
}
