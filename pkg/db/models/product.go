package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a supplier-owned catalog entry with its own stock counters.
// When variants exist, orderable stock lives on the variants and the product
// counters hold the variant-less remainder.
type Product struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID        uuid.UUID        `gorm:"column:supplier_id;type:uuid;not null;index"`
	Name              string           `gorm:"column:name;not null"`
	SalePrice         decimal.Decimal  `gorm:"column:sale_price;type:numeric(12,2);not null"`
	WholesalePrice    decimal.Decimal  `gorm:"column:wholesale_price;type:numeric(12,2);not null"`
	AvailableQty      int              `gorm:"column:available_qty;not null;default:0"`
	ReservedQty       int              `gorm:"column:reserved_qty;not null;default:0"`
	LowStockThreshold int              `gorm:"column:low_stock_threshold;not null;default:0"`
	Variants          []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
