package models

import (
	"time"

	"github.com/google/uuid"
)

// LocationGroup bundles pincodes that share delivery terms. Deleting a group
// with attached locations is rejected at the service layer; the schema does
// not cascade.
type LocationGroup struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string     `gorm:"column:name;not null;uniqueIndex"`
	IsCODAvailable    bool       `gorm:"column:is_cod_available;not null;default:false"`
	DeliveryDays      int        `gorm:"column:delivery_days;not null;default:7"`
	IsExpressDelivery bool       `gorm:"column:is_express_delivery;not null;default:false"`
	Locations         []Location `gorm:"foreignKey:LocationGroupID"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
