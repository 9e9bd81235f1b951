package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon is a flat-amount discount code with an activity window, a per-user
// usage cap and an optional product scope. A coupon with no linked products
// applies store-wide.
type Coupon struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string          `gorm:"column:code;not null;uniqueIndex"`
	ValuePaise   int             `gorm:"column:value_paise;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	StartDate    time.Time       `gorm:"column:start_date;not null"`
	ExpiryDate   time.Time       `gorm:"column:expiry_date;not null"`
	UsagePerUser int             `gorm:"column:usage_per_user;not null;default:1"`
	UsedCount    int             `gorm:"column:used_count;not null;default:0"`
	Products     []CouponProduct `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponProduct links a coupon to a product it applies to.
type CouponProduct struct {
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
}

// CouponRedemption is the per-user usage ledger backing UsagePerUser. One row
// is written per successful redemption, in the same transaction that bumps
// the coupon's UsedCount.
type CouponRedemption struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CouponID  uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;index:idx_coupon_redemptions_coupon_user"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_coupon_redemptions_coupon_user"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
