package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/enums"
)

// Wallet holds an account's running balance. It is only ever mutated by the
// wallet ledger, in the same transaction as the ledger entry.
type Wallet struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID   uuid.UUID         `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_wallets_account"`
	AccountType enums.AccountType `gorm:"column:account_type;type:account_type;not null;uniqueIndex:idx_wallets_account"`
	Balance     decimal.Decimal   `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
