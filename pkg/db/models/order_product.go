package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderProduct is the immutable line-item snapshot of a variant at purchase
// time. Price is captured here and never recomputed from current
// VariantPrice rows.
type OrderProduct struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID  uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Name       string    `gorm:"column:name;not null"`
	PricePaise int       `gorm:"column:price_paise;not null"`
	MRPPaise   int       `gorm:"column:mrp_paise;not null"`
	Qty        int       `gorm:"column:qty;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
