package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

// Repository manages persistence for wallets and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreate(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error)
	GetByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	AdjustBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal, floor *decimal.Decimal) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error)
	SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreate(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error) {
	wallet, err := r.GetByAccount(ctx, accountID, accountType)
	if err == nil {
		return wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	created := &models.Wallet{
		ID:          uuid.New(),
		AccountID:   accountID,
		AccountType: accountType,
		Balance:     decimal.Zero,
	}
	if cerr := r.db.WithContext(ctx).Create(created).Error; cerr != nil {
		// Lost the race to another transaction; the row exists now.
		if db.IsUniqueViolation(cerr, "") {
			return r.GetByAccount(ctx, accountID, accountType)
		}
		return nil, cerr
	}
	return created, nil
}

func (r *repository) GetByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND account_type = ?", accountID, accountType).
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// AdjustBalance applies a signed delta. When floor is set the update only
// succeeds if the resulting balance stays at or above it; the boolean
// reports whether a row was updated.
func (r *repository) AdjustBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal, floor *decimal.Decimal) (bool, error) {
	query := `
		UPDATE wallets
		SET balance = balance + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	args := []any{delta, walletID}
	if floor != nil {
		// Keep balance as a direct operand so the column's numeric
		// affinity applies to the bound parameter on every driver.
		query += ` AND balance >= ?`
		args = append(args, floor.Sub(delta))
	}
	res := r.db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, walletID uuid.UUID, params pagination.Params) ([]models.WalletTransaction, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Where("wallet_id = ?", walletID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.WalletTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return txns, next, nil
}

func (r *repository) SumTransactions(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("SUM(amount)").
		Where("wallet_id = ?", walletID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
