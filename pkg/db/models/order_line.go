package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLine snapshots one cart line inside a sub-order. Immutable once
// created: quantity changes require cancelling and recreating the sub-order.
// UnitMargin is the per-unit vendor margin net of the apportioned platform
// fee, fixed at split time.
type OrderLine struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubOrderID         uuid.UUID       `gorm:"column:sub_order_id;type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	VariantID          *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Name               string          `gorm:"column:name;not null"`
	Qty                int             `gorm:"column:qty;not null"`
	UnitSalePrice      decimal.Decimal `gorm:"column:unit_sale_price;type:numeric(12,2);not null"`
	UnitWholesalePrice decimal.Decimal `gorm:"column:unit_wholesale_price;type:numeric(12,2);not null"`
	UnitMargin         decimal.Decimal `gorm:"column:unit_margin;type:numeric(12,4);not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
}
