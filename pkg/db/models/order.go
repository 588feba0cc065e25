package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Order is a vendor checkout that fans out into one sub-order per supplier.
// Totals are written once at split time and only change through cancellation.
type Order struct {
	ID                 uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string                        `gorm:"column:code;not null;uniqueIndex"`
	VendorID           uuid.UUID                     `gorm:"column:vendor_id;type:uuid;not null;index"`
	ClientID           uuid.UUID                     `gorm:"column:client_id;type:uuid;not null"`
	Comment            *string                       `gorm:"column:comment"`
	Source             *string                       `gorm:"column:source"`
	Fragile            bool                          `gorm:"column:fragile;not null;default:false"`
	Openable           bool                          `gorm:"column:openable;not null;default:false"`
	ConfirmationStatus enums.OrderConfirmationStatus `gorm:"column:confirmation_status;type:order_confirmation_status;not null;default:'pending'"`
	State              enums.OrderState              `gorm:"column:state;type:order_state;not null;default:'pending'"`
	Subtotal           decimal.Decimal               `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DeliveryFee        decimal.Decimal               `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	PlatformFee        decimal.Decimal               `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	GrandTotal         decimal.Decimal               `gorm:"column:grand_total;type:numeric(12,2);not null"`
	SubOrders          []SubOrder                    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}
