package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal record orders and coupon redemptions reference.
// Authentication and session handling live outside this service.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;not null;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Phone     string    `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
