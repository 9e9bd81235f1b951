package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rahulmehra/shopkart-backend/pkg/enums"
)

// Order is the customer order aggregate. It is created at checkout in
// PENDING, mutated by the payment webhook and by admin status transitions,
// and never hard-deleted in the normal flow.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	OrderNumber   int64             `gorm:"column:order_number;not null;uniqueIndex"`
	InvoiceNumber string            `gorm:"column:invoice_number;not null;uniqueIndex"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'PENDING'"`
	IsPaid        bool              `gorm:"column:is_paid;not null;default:false"`
	IsCompleted   bool              `gorm:"column:is_completed;not null;default:false"`

	SubtotalPaise int        `gorm:"column:subtotal_paise;not null"`
	DiscountPaise int        `gorm:"column:discount_paise;not null;default:0"`
	TotalPaise    int        `gorm:"column:total_paise;not null"`
	CouponID      *uuid.UUID `gorm:"column:coupon_id;type:uuid"`

	ProviderOrderID *string `gorm:"column:provider_order_id;uniqueIndex"`

	ShippingName    string `gorm:"column:shipping_name"`
	ShippingPhone   string `gorm:"column:shipping_phone"`
	ShippingLine1   string `gorm:"column:shipping_line1"`
	ShippingLine2   string `gorm:"column:shipping_line2"`
	ShippingCity    string `gorm:"column:shipping_city"`
	ShippingState   string `gorm:"column:shipping_state"`
	ShippingPincode string `gorm:"column:shipping_pincode"`

	// StockRestoredAt guards against double restoration on repeated cancel
	// calls; set in the same transaction that increments stock.
	StockRestoredAt *time.Time `gorm:"column:stock_restored_at"`
	PaidAt          *time.Time `gorm:"column:paid_at"`

	Items     []OrderProduct `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
