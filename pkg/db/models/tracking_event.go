package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// TrackingEvent is one immutable entry in a sub-order's delivery history.
type TrackingEvent struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SubOrderID  uuid.UUID            `gorm:"column:sub_order_id;type:uuid;not null;index"`
	OldStatus   enums.DeliveryStatus `gorm:"column:old_status;type:delivery_status;not null"`
	NewStatus   enums.DeliveryStatus `gorm:"column:new_status;type:delivery_status;not null"`
	Description string               `gorm:"column:description;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
