package models

import (
	"time"

	"github.com/google/uuid"
)

// VariantPrice is the per-location-group price row for a variant. At most one
// row exists per (variant, location group) pair; amounts are paise.
type VariantPrice struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VariantID       uuid.UUID `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:idx_variant_prices_variant_group"`
	LocationGroupID uuid.UUID `gorm:"column:location_group_id;type:uuid;not null;uniqueIndex:idx_variant_prices_variant_group"`
	PricePaise      int       `gorm:"column:price_paise;not null"`
	MRPPaise        int       `gorm:"column:mrp_paise;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
