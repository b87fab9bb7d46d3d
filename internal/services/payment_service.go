// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/events"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/repository"
	"github.com/javajoker/distro-backend/internal/utils"
)

const requestMetadataKey = "dealer_request_id"

// PaymentIntent is the provider-neutral view of a card payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

// PaymentProvider creates and reads card payment intents.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

const intentSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// StripeProvider talks to Stripe PaymentIntents.
type StripeProvider struct{}

func NewStripeProvider(secretKey string) *StripeProvider {
	stripe.Key = secretKey
	return &StripeProvider{}
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func (p *StripeProvider) GetIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

// PaymentService drives the payment state machine of a dealer request:
// pending -> paid -> verified | rejected, and rejected -> paid on re-upload.
type PaymentService struct {
	store               repository.Store
	storage             ReceiptStorage
	provider            PaymentProvider
	notificationService *NotificationService
	publisher           events.Publisher
	payment             config.PaymentConfig
}

type PaymentDecisionRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}

type ConfirmCardPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret string          `json:"client_secret"`
	PaymentID    string          `json:"payment_id"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// NewPaymentService wires the gate. provider may be nil when card payments are not configured.
func NewPaymentService(
	store repository.Store,
	storage ReceiptStorage,
	provider PaymentProvider,
	notificationService *NotificationService,
	publisher events.Publisher,
	cfg *config.Config,
) *PaymentService {
	return &PaymentService{
		store:               store,
		storage:             storage,
		provider:            provider,
		notificationService: notificationService,
		publisher:           publisher,
		payment:             cfg.Payment,
	}
}

// ownedPayable loads a request and checks it belongs to the dealer and can still take a payment.
func ownedPayable(ctx context.Context, load func(context.Context, uuid.UUID) (*models.DealerRequest, error), requestID, dealerID uuid.UUID) (*models.DealerRequest, error) {
	request, err := load(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, "dealer request")
	}
	if request.DealerID != dealerID {
		return nil, newError(ErrForbidden, "you can only pay for your own requests")
	}
	if request.Status == models.RequestStatusCancelled {
		return nil, newError(ErrInvalidState, "request is cancelled")
	}
	if !request.PaymentStatus.AcceptsUpload() {
		return nil, newError(ErrInvalidState, "payment already %s", request.PaymentStatus)
	}
	return request, nil
}

// markPaid moves a payable request to paid inside one transaction, re-checking the
// state under the row lock after any slow external call.
func (s *PaymentService) markPaid(ctx context.Context, requestID, dealerID uuid.UUID, updates map[string]interface{}) error {
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		request, err := ownedPayable(ctx, tx.Requests().GetForUpdate, requestID, dealerID)
		if err != nil {
			return err
		}

		updates["payment_status"] = models.PaymentStatusPaid
		ok, err := tx.Requests().UpdatePaymentStatus(ctx, requestID, request.PaymentStatus, updates)
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrInvalidState, "payment status changed, please retry")
		}
		return nil
	})
}

// UploadReceipt stores the receipt and marks the payment paid.
func (s *PaymentService) UploadReceipt(ctx context.Context, requestID, dealerID uuid.UUID, file ReceiptFile) (*models.DealerRequest, error) {
	if _, err := ownedPayable(ctx, s.store.Requests().GetByID, requestID, dealerID); err != nil {
		return nil, err
	}

	url, err := s.storage.SaveReceipt(ctx, requestID, file)
	if err != nil {
		return nil, err
	}

	if err := s.markPaid(ctx, requestID, dealerID, map[string]interface{}{
		"receipt_image": url,
	}); err != nil {
		if delErr := s.storage.DeleteReceipt(ctx, url); delErr != nil {
			logger.LogError("payment_service", "UploadReceipt", "failed to remove unreferenced receipt", url, delErr)
		}
		return nil, err
	}

	return s.afterPaid(ctx, requestID, dealerID, "receipt")
}

// CreatePaymentIntent starts a card payment for the request value.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, requestID, dealerID uuid.UUID) (*PaymentIntentResponse, error) {
	if s.provider == nil {
		return nil, newError(ErrValidation, "card payments are not configured")
	}

	request, err := ownedPayable(ctx, s.store.Requests().GetByID, requestID, dealerID)
	if err != nil {
		return nil, err
	}
	if request.Product == nil {
		return nil, newError(ErrNotFound, "product not found")
	}

	// Charge the price captured when the request was made.
	amount := requestValue(request, *request.Product, true)
	minor := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if minor <= 0 {
		return nil, newError(ErrValidation, "request value must be greater than zero")
	}

	intent, err := s.provider.CreateIntent(ctx, minor, s.payment.Currency, map[string]string{
		requestMetadataKey: request.ID.String(),
		"dealer_id":        dealerID.String(),
	})
	if err != nil {
		return nil, err
	}

	return &PaymentIntentResponse{
		ClientSecret: intent.ClientSecret,
		PaymentID:    intent.ID,
		Status:       intent.Status,
		Amount:       amount,
		Currency:     s.payment.Currency,
	}, nil
}

// ConfirmCardPayment marks the request paid once Stripe reports the intent succeeded.
// An admin still has to verify it.
func (s *PaymentService) ConfirmCardPayment(ctx context.Context, requestID, dealerID uuid.UUID, req *ConfirmCardPaymentRequest) (*models.DealerRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}
	if s.provider == nil {
		return nil, newError(ErrValidation, "card payments are not configured")
	}

	if _, err := ownedPayable(ctx, s.store.Requests().GetByID, requestID, dealerID); err != nil {
		return nil, err
	}

	intent, err := s.provider.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Metadata[requestMetadataKey] != requestID.String() {
		return nil, newError(ErrValidation, "payment intent does not belong to this request")
	}
	if intent.Status != intentSucceeded {
		return nil, newError(ErrInvalidState, "payment intent is %s", intent.Status)
	}

	if err := s.markPaid(ctx, requestID, dealerID, map[string]interface{}{
		"payment_reference": intent.ID,
	}); err != nil {
		return nil, err
	}

	return s.afterPaid(ctx, requestID, dealerID, "card")
}

func (s *PaymentService) afterPaid(ctx context.Context, requestID, dealerID uuid.UUID, method string) (*models.DealerRequest, error) {
	request, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer request: %w", err)
	}

	logger.Get().WithFields(logrus.Fields{
		"request_id": requestID,
		"dealer_id":  dealerID,
		"method":     method,
	}).Info("payment submitted")

	s.notificationService.NotifyAdmins(ctx, NotificationReceiptUploaded,
		"Payment Awaiting Verification",
		fmt.Sprintf("A dealer submitted a %s payment for a request of %d strips", method, request.Strips),
		"dealer_request", request.ID)
	publish(ctx, s.publisher, events.New(events.TypePaymentPaid, request.ID, dealerID, map[string]interface{}{
		"method": method,
	}))

	return request, nil
}

// VerifyPayment accepts a paid payment. Verified is terminal.
func (s *PaymentService) VerifyPayment(ctx context.Context, requestID, adminID uuid.UUID, req *PaymentDecisionRequest) (*models.DealerRequest, error) {
	return s.decide(ctx, requestID, adminID, req, models.PaymentStatusVerified)
}

// RejectPayment sends a paid payment back to the dealer for a new receipt.
func (s *PaymentService) RejectPayment(ctx context.Context, requestID, adminID uuid.UUID, req *PaymentDecisionRequest) (*models.DealerRequest, error) {
	return s.decide(ctx, requestID, adminID, req, models.PaymentStatusRejected)
}

func (s *PaymentService) decide(ctx context.Context, requestID, adminID uuid.UUID, req *PaymentDecisionRequest, to models.PaymentStatus) (*models.DealerRequest, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationFailed(err)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		request, err := tx.Requests().GetForUpdate(ctx, requestID)
		if err != nil {
			return notFoundOr(err, "dealer request")
		}
		if request.PaymentStatus != models.PaymentStatusPaid {
			return newError(ErrInvalidState, "payment is %s, only paid payments can be reviewed", request.PaymentStatus)
		}

		ok, err := tx.Requests().UpdatePaymentStatus(ctx, requestID, models.PaymentStatusPaid, map[string]interface{}{
			"payment_status":      to,
			"payment_verified_by": adminID,
			"payment_verified_at": time.Now(),
			"payment_notes":       req.Notes,
		})
		if err != nil {
			return err
		}
		if !ok {
			return newError(ErrInvalidState, "payment status changed, please retry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	request, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer request: %w", err)
	}

	notificationType, title, eventType := NotificationPaymentVerified, "Payment Verified", events.TypePaymentVerified
	if to == models.PaymentStatusRejected {
		notificationType, title, eventType = NotificationPaymentRejected, "Payment Rejected", events.TypePaymentRejected
	}

	logger.Get().WithFields(logrus.Fields{
		"request_id":     requestID,
		"admin_id":       adminID,
		"payment_status": to,
	}).Info("payment reviewed")

	message := fmt.Sprintf("Your payment for %d strips was %s", request.Strips, to)
	if req.Notes != "" {
		message += ": " + req.Notes
	}
	s.notificationService.NotifyUser(ctx, request.DealerID, notificationType, title, message, "dealer_request", request.ID)
	publish(ctx, s.publisher, events.New(eventType, request.ID, adminID, nil))

	return request, nil
}
