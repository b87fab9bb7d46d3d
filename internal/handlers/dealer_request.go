// internal/handlers/dealer_request.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type DealerRequestHandler struct {
	requestService *services.DealerRequestService
	statsService   *services.StatsService
}

func NewDealerRequestHandler(requestService *services.DealerRequestService, statsService *services.StatsService) *DealerRequestHandler {
	return &DealerRequestHandler{
		requestService: requestService,
		statsService:   statsService,
	}
}

// POST /dealer-requests
func (h *DealerRequestHandler) CreateRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateDealerRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.requestService.CreateRequest(c.Request.Context(), actor.ID, &req)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.CreateRequest", err)
		return
	}

	utils.CreatedResponse(c, i18n.KeyRequestCreated, request)
}

// GET /dealer-requests?status=&payment_status=&dealer_id=&page=&limit=
func (h *DealerRequestHandler) ListRequests(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	lang := utils.GetLangFromContext(c)

	filter := services.DealerRequestFilter{PaginationParams: utils.GetPaginationParams(c)}

	if raw := c.Query("status"); raw != "" {
		status := models.RequestStatus(raw)
		if status != models.RequestStatusPending && status != models.RequestStatusApproved && status != models.RequestStatusCancelled {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		filter.Status = &status
	}

	if raw := c.Query("payment_status"); raw != "" {
		status := models.PaymentStatus(raw)
		switch status {
		case models.PaymentStatusPending, models.PaymentStatusPaid, models.PaymentStatusVerified, models.PaymentStatusRejected:
			filter.PaymentStatus = &status
		default:
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "payment_status"), nil)
			return
		}
	}

	if raw := c.Query("dealer_id"); raw != "" {
		dealerID, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "dealer_id"), nil)
			return
		}
		filter.DealerID = &dealerID
	}

	requests, total, err := h.requestService.ListRequests(c.Request.Context(), actor, filter)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.ListRequests", err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(requests, total, filter.PaginationParams))
}

// GET /dealer-requests/:id
func (h *DealerRequestHandler) GetRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	request, err := h.requestService.GetRequest(c.Request.Context(), requestID, actor)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.GetRequest", err)
		return
	}

	utils.SuccessResponse(c, request)
}

// PUT /dealer-requests/:id/approve
func (h *DealerRequestHandler) ApproveRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ProcessRequestRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	request, err := h.requestService.ApproveRequest(c.Request.Context(), requestID, actor.ID, &req)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.ApproveRequest", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyRequestApproved, request)
}

// PUT /dealer-requests/:id/cancel
func (h *DealerRequestHandler) CancelRequest(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ProcessRequestRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	request, err := h.requestService.CancelRequest(c.Request.Context(), requestID, actor, &req)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.CancelRequest", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyRequestCancelled, request)
}

// GET /dealer-requests/dealer/:id/stats
func (h *DealerRequestHandler) DealerStats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	dealerID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	stats, err := h.statsService.DealerStats(c.Request.Context(), actor, dealerID)
	if err != nil {
		handleServiceError(c, "DealerRequestHandler.DealerStats", err)
		return
	}

	utils.SuccessResponse(c, stats)
}
