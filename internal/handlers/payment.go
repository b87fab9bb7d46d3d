// internal/handlers/payment.go
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// PUT /dealer-requests/:id/upload-receipt (multipart field "receipt")
func (h *PaymentHandler) UploadReceipt(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	header, err := c.FormFile("receipt")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyFileRequired), nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		handleServiceError(c, "PaymentHandler.UploadReceipt", err)
		return
	}
	defer file.Close()

	request, err := h.paymentService.UploadReceipt(c.Request.Context(), requestID, actor.ID, services.ReceiptFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		handleServiceError(c, "PaymentHandler.UploadReceipt", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyPaymentReceiptUploaded, request)
}

// PUT /dealer-requests/:id/verify-payment
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	h.decide(c, "PaymentHandler.VerifyPayment", i18n.KeyPaymentVerified, h.paymentService.VerifyPayment)
}

// PUT /dealer-requests/:id/reject-payment
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	h.decide(c, "PaymentHandler.RejectPayment", i18n.KeyPaymentRejected, h.paymentService.RejectPayment)
}

type paymentDecision func(ctx context.Context, requestID, adminID uuid.UUID, req *services.PaymentDecisionRequest) (*models.DealerRequest, error)

func (h *PaymentHandler) decide(c *gin.Context, funcName, messageKey string, decision paymentDecision) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.PaymentDecisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	request, err := decision(c.Request.Context(), requestID, actor.ID, &req)
	if err != nil {
		handleServiceError(c, funcName, err)
		return
	}

	utils.MessageResponse(c, messageKey, request)
}

// POST /dealer-requests/:id/payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	response, err := h.paymentService.CreatePaymentIntent(c.Request.Context(), requestID, actor.ID)
	if err != nil {
		handleServiceError(c, "PaymentHandler.CreatePaymentIntent", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyPaymentIntentCreated, response)
}

// PUT /dealer-requests/:id/confirm-payment
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	requestID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.ConfirmCardPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	request, err := h.paymentService.ConfirmCardPayment(c.Request.Context(), requestID, actor.ID, &req)
	if err != nil {
		handleServiceError(c, "PaymentHandler.ConfirmPayment", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyPaymentConfirmed, request)
}
