package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductVariant carries the stock counters for one axis value of a product.
type ProductVariant struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
