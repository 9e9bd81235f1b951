package models

import (
	"time"

	"github.com/google/uuid"
)

// Variant is a purchasable size/color configuration of a product. Stock is
// mutated only through the stock ledger's conditional updates.
type Variant struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID      `gorm:"column:product_id;type:uuid;not null;index"`
	SKU       string         `gorm:"column:sku;not null;uniqueIndex"`
	Size      *string        `gorm:"column:size"`
	Color     *string        `gorm:"column:color"`
	Stock     int            `gorm:"column:stock;not null;default:0"`
	Prices    []VariantPrice `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
