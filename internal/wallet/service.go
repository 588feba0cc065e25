// Package wallet keeps per-account balances consistent with an append-only
// transaction log. Every balance mutation writes one signed transaction row
// in the same database transaction as the balance update.
package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/metrics"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

// EntryInput describes one ledger posting. Amount is always positive; the
// operation (credit or debit) decides the stored sign.
type EntryInput struct {
	AccountID   uuid.UUID
	AccountType enums.AccountType
	Kind        enums.TransactionKind
	Amount      decimal.Decimal

	OrderID          *uuid.UUID
	SubOrderID       *uuid.UUID
	WithdrawalID     *uuid.UUID
	ReferredVendorID *uuid.UUID
	ReferralLevel    *int
	Note             *string
}

// Reconciliation compares a wallet's balance against the sum of its
// transaction log.
type Reconciliation struct {
	WalletID  uuid.UUID       `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Drift     decimal.Decimal `json:"drift"`
}

// Service posts ledger entries and answers balance queries. Credit and Debit
// must run inside a caller-owned transaction so that postings commit or roll
// back together with the domain change that caused them.
type Service interface {
	Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error)
	GetByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.WalletTransaction, string, error)
	Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error)
}

type service struct {
	repo  Repository
	logg  zerolog.Logger
	meter *metrics.LedgerMetrics
}

// NewService wires a wallet service with the provided repository. The meter
// may be nil when no registry is configured.
func NewService(repo Repository, logg zerolog.Logger, meter *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo, logg: logg, meter: meter}, nil
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.post(ctx, tx, input, false)
}

// Debit rejects postings that would take the balance negative, except for
// kinds that tolerate overdraft, which are logged when they overdraw.
func (s *service) Debit(ctx context.Context, tx *gorm.DB, input EntryInput) (*models.WalletTransaction, error) {
	return s.post(ctx, tx, input, true)
}

func (s *service) post(ctx context.Context, tx *gorm.DB, input EntryInput, debit bool) (*models.WalletTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for ledger posting")
	}
	if err := validateEntry(input); err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	wallet, err := repo.GetOrCreate(ctx, input.AccountID, input.AccountType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}

	amount := input.Amount
	var floor *decimal.Decimal
	if debit {
		amount = amount.Neg()
		if !input.Kind.AllowsOverdraft() {
			zero := decimal.Zero
			floor = &zero
		}
	}

	updated, err := repo.AdjustBalance(ctx, wallet.ID, amount, floor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust balance")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance,
			"balance too low for this operation").
			WithDetails(map[string]string{
				"wallet_id": wallet.ID.String(),
				"requested": input.Amount.String(),
			})
	}

	txn := &models.WalletTransaction{
		ID:               uuid.New(),
		WalletID:         wallet.ID,
		Amount:           amount,
		Kind:             input.Kind,
		OrderID:          input.OrderID,
		SubOrderID:       input.SubOrderID,
		WithdrawalID:     input.WithdrawalID,
		ReferredVendorID: input.ReferredVendorID,
		ReferralLevel:    input.ReferralLevel,
		Note:             input.Note,
	}
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record wallet transaction")
	}
	s.meter.IncWalletTransaction(input.Kind.String())

	if debit && input.Kind.AllowsOverdraft() && wallet.Balance.Add(amount).IsNegative() {
		s.logg.Warn().
			Str("wallet_id", wallet.ID.String()).
			Str("kind", input.Kind.String()).
			Str("amount", input.Amount.String()).
			Msg("penalty debit drove wallet balance negative")
	}
	return txn, nil
}

func (s *service) GetByAccount(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType) (*models.Wallet, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	wallet, err := s.repo.GetOrCreate(ctx, accountID, accountType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	return wallet, nil
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.WalletTransaction, string, error) {
	wallet, err := s.GetByAccount(ctx, accountID, accountType)
	if err != nil {
		return nil, "", err
	}
	txns, next, err := s.repo.ListTransactions(ctx, wallet.ID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wallet transactions")
	}
	return txns, next, nil
}

func (s *service) Reconcile(ctx context.Context, walletID uuid.UUID) (*Reconciliation, error) {
	if walletID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wallet id required")
	}
	wallet, err := s.repo.GetByID(ctx, walletID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	sum, err := s.repo.SumTransactions(ctx, walletID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum wallet transactions")
	}
	return &Reconciliation{
		WalletID:  wallet.ID,
		Balance:   wallet.Balance,
		LedgerSum: sum,
		Drift:     wallet.Balance.Sub(sum),
	}, nil
}

func validateEntry(input EntryInput) error {
	if input.AccountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if !input.AccountType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid account type %q", input.AccountType))
	}
	if !input.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", input.Kind))
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return nil
}
