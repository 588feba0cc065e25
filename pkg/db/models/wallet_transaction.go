package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// WalletTransaction is one signed, append-only ledger entry. The sum of all
// entries for a wallet equals the wallet balance at all times.
type WalletTransaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID         uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index"`
	Amount           decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	Kind             enums.TransactionKind `gorm:"column:kind;type:transaction_kind;not null"`
	OrderID          *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	SubOrderID       *uuid.UUID            `gorm:"column:sub_order_id;type:uuid;index"`
	WithdrawalID     *uuid.UUID            `gorm:"column:withdrawal_id;type:uuid"`
	ReferredVendorID *uuid.UUID            `gorm:"column:referred_vendor_id;type:uuid"`
	ReferralLevel    *int                  `gorm:"column:referral_level"`
	Note             *string               `gorm:"column:note"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}
