package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// WithdrawalRequest asks to convert wallet balance into a payout. Creating a
// request never touches the balance; only an admin approval debits it.
type WithdrawalRequest struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID  uuid.UUID              `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount    decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status    enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	DecidedBy *uuid.UUID             `gorm:"column:decided_by;type:uuid"`
	DecidedAt *time.Time             `gorm:"column:decided_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
