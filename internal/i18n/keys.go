// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess       = "success"
	KeyNotFound      = "not_found"
	KeyInternalError = "internal_error"
	KeyAccessDenied  = "access_denied"
	KeyRateLimited   = "rate_limited"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthLoginSuccess = "auth.login_success"

	// Users
	KeyUserCreated = "user.created"

	// Products
	KeyProductCreated      = "product.created"
	KeyProductUpdated      = "product.updated"
	KeyProductDeleted      = "product.deleted"
	KeyProductStockUpdated = "product.stock_updated"

	// Dealer requests
	KeyRequestCreated   = "request.created"
	KeyRequestApproved  = "request.approved"
	KeyRequestCancelled = "request.cancelled"

	// Payments
	KeyPaymentReceiptUploaded = "payment.receipt_uploaded"
	KeyPaymentVerified        = "payment.verified"
	KeyPaymentRejected        = "payment.rejected"
	KeyPaymentIntentCreated   = "payment.intent_created"
	KeyPaymentConfirmed       = "payment.confirmed"

	// Stock allocation
	KeyStockAllocated = "allocation.created"

	// Notifications
	KeyNotificationRead = "notification.read"

	// Validation
	KeyValidationInvalid = "validation.invalid"
	KeyFileRequired      = "file.required"
)
