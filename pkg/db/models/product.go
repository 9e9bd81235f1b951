package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the storefront listing; purchasable configurations live on its
// variants.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string         `gorm:"column:title;not null"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex"`
	Description *string        `gorm:"column:description"`
	BrandID     *uuid.UUID     `gorm:"column:brand_id;type:uuid"`
	CategoryID  *uuid.UUID     `gorm:"column:category_id;type:uuid"`
	Tags        pq.StringArray `gorm:"column:tags;type:text[]"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Variants    []Variant      `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
