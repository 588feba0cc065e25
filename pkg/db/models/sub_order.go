package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// SubOrder is the supplier-scoped portion of an order. It owns its lines, its
// delivery lifecycle and an append-only tracking history.
type SubOrder struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string               `gorm:"column:code;not null;uniqueIndex"`
	OrderID     uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	SupplierID  uuid.UUID            `gorm:"column:supplier_id;type:uuid;not null;index"`
	Total       decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null"`
	Status      enums.DeliveryStatus `gorm:"column:status;type:delivery_status;not null;default:'pending'"`
	Lines       []OrderLine          `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	Trackings   []TrackingEvent      `gorm:"foreignKey:SubOrderID;constraint:OnDelete:CASCADE"`
	DeliveredAt *time.Time           `gorm:"column:delivered_at"`
	ReturnedAt  *time.Time           `gorm:"column:returned_at"`
	CancelledAt *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
