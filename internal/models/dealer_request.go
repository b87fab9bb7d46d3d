// internal/models/dealer_request.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DealerRequest struct {
	BaseModel
	DealerID    uuid.UUID       `json:"dealer_id" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	Strips      int             `json:"strips" gorm:"not null;check:strips >= 1"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2)"`
	Status      RequestStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedBy *uuid.UUID      `json:"processed_by" gorm:"type:uuid"`
	ProcessedAt *time.Time      `json:"processed_at"`
	Notes       string          `json:"notes" gorm:"type:text"`

	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending';index"`
	ReceiptImage      *string       `json:"receipt_image" gorm:"type:text"`
	PaymentReference  *string       `json:"payment_reference" gorm:"size:255"`
	PaymentVerifiedBy *uuid.UUID    `json:"payment_verified_by" gorm:"type:uuid"`
	PaymentVerifiedAt *time.Time    `json:"payment_verified_at"`
	PaymentNotes      string        `json:"payment_notes" gorm:"type:text"`

	// Relationships
	Dealer  *User    `json:"dealer,omitempty" gorm:"foreignKey:DealerID"`
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
