package models

import (
	"time"

	"github.com/google/uuid"
)

// Location maps a delivery pincode to at most one location group.
type Location struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Pincode         string     `gorm:"column:pincode;not null;uniqueIndex"`
	City            string     `gorm:"column:city;not null"`
	State           string     `gorm:"column:state;not null"`
	Country         string     `gorm:"column:country;not null;default:'India'"`
	LocationGroupID *uuid.UUID `gorm:"column:location_group_id;type:uuid;index"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
