package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is an account that places orders and earns sale margins.
type Vendor struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex"`
	Phone        *string   `gorm:"column:phone"`
	ReferralCode string    `gorm:"column:referral_code;not null;uniqueIndex"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
