package models

import (
	"time"

	"github.com/google/uuid"
)

// Client is the shipping contact an order is delivered to.
type Client struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null;index"`
	Address   string    `gorm:"column:address;not null"`
	City      *string   `gorm:"column:city"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
