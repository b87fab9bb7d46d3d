// internal/models/stock_allocation.go
package models

import (
	"github.com/google/uuid"
)

// StockAllocation records strips a dealer handed down to a salesman. Rows are never updated.
type StockAllocation struct {
	BaseModel
	DealerID   uuid.UUID `json:"dealer_id" gorm:"type:uuid;not null;index:idx_allocations_dealer_product"`
	SalesmanID uuid.UUID `json:"salesman_id" gorm:"type:uuid;not null;index"`
	ProductID  uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index:idx_allocations_dealer_product"`
	Strips     int       `json:"strips" gorm:"not null;check:strips >= 1"`
	Notes      string    `json:"notes" gorm:"type:text"`

	// Relationships
	Dealer   *User    `json:"dealer,omitempty" gorm:"foreignKey:DealerID"`
	Salesman *User    `json:"salesman,omitempty" gorm:"foreignKey:SalesmanID"`
	Product  *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}
