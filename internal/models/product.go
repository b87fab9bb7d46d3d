// internal/models/product.go
package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product stock is counted in strips; one strip holds PacketsPerStrip packets.
type Product struct {
	BaseModel
	Title           string          `json:"title" gorm:"size:255;not null"`
	Description     string          `json:"description" gorm:"type:text"`
	PacketPrice     decimal.Decimal `json:"packet_price" gorm:"type:decimal(12,2);not null"`
	PacketsPerStrip int             `json:"packets_per_strip" gorm:"not null;default:1;check:packets_per_strip >= 1"`
	Stock           int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Images          pq.StringArray  `json:"images" gorm:"type:text[]"`
	CreatedBy       uuid.UUID       `json:"created_by" gorm:"type:uuid;not null;index"`
}

// StripValue is the price of n strips at the current packet price.
func (p *Product) StripValue(strips int) decimal.Decimal {
	return p.PacketPrice.Mul(decimal.NewFromInt(int64(strips) * int64(p.PacketsPerStrip)))
}
