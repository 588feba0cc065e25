package withdrawals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newWithdrawalsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:withdrawals_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  account_type TEXT NOT NULL,
  balance NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (account_id, account_type)
);`,
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  kind TEXT NOT NULL,
  order_id TEXT,
  sub_order_id TEXT,
  withdrawal_id TEXT,
  referred_vendor_id TEXT,
  referral_level INTEGER,
  note TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  decided_by TEXT,
  decided_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

type withdrawalFixture struct {
	db        *gorm.DB
	svc       Service
	wallets   wallet.Service
	accountID uuid.UUID
}

func newWithdrawalFixture(t *testing.T, balance string) *withdrawalFixture {
	t.Helper()

	db := newWithdrawalsTestDB(t)
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), zerolog.Nop(), nil)
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	svc, err := NewService(testTxRunner{db: db}, NewRepository(db), walletSvc, config.WalletConfig{
		ReturnPenalty:     decimal.RequireFromString("4.0"),
		WithdrawalMinimum: decimal.RequireFromString("20.0"),
	})
	if err != nil {
		t.Fatalf("withdrawals service: %v", err)
	}

	f := &withdrawalFixture{db: db, svc: svc, wallets: walletSvc, accountID: uuid.New()}
	if balance != "" {
		err := db.Transaction(func(tx *gorm.DB) error {
			_, terr := walletSvc.Credit(context.Background(), tx, wallet.EntryInput{
				AccountID:   f.accountID,
				AccountType: enums.AccountTypeVendor,
				Kind:        enums.TransactionKindSaleProfit,
				Amount:      decimal.RequireFromString(balance),
			})
			return terr
		})
		if err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return f
}

func (f *withdrawalFixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByAccount(context.Background(), f.accountID, enums.AccountTypeVendor)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	return w.Balance
}

func TestRequestValidations(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	_, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("5"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected minimum rejection, got %v", err)
	}

	_, err = f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("150"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected balance rejection, got %v", err)
	}

	request, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("60"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("status = %s, want pending", request.Status)
	}
	// Creation never touches the balance.
	if !f.balance(t).Equal(decimal.RequireFromString("100")) {
		t.Fatalf("balance changed at request time: %s", f.balance(t))
	}
}

func TestDecideApprovedDebitsOnce(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()
	admin := uuid.New()

	request, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("60"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	decided, err := f.svc.Decide(ctx, admin, request.ID, enums.WithdrawalStatusApproved)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != enums.WithdrawalStatusApproved || decided.DecidedBy == nil || *decided.DecidedBy != admin {
		t.Fatalf("unexpected decision record: %+v", decided)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("40")) {
		t.Fatalf("balance = %s, want 40", f.balance(t))
	}

	// Second approval attempt loses the pending-state race.
	_, err = f.svc.Decide(ctx, admin, request.ID, enums.WithdrawalStatusApproved)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("40")) {
		t.Fatalf("double debit: %s", f.balance(t))
	}
}

func TestDecideApprovedRechecksBalance(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	request, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("80"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Balance drifts below the requested amount before the decision.
	err = f.db.Transaction(func(tx *gorm.DB) error {
		_, terr := f.wallets.Debit(ctx, tx, wallet.EntryInput{
			AccountID:   f.accountID,
			AccountType: enums.AccountTypeVendor,
			Kind:        enums.TransactionKindWithdrawalPayout,
			Amount:      decimal.RequireFromString("50"),
		})
		return terr
	})
	if err != nil {
		t.Fatalf("drain balance: %v", err)
	}

	_, err = f.svc.Decide(ctx, uuid.New(), request.ID, enums.WithdrawalStatusApproved)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected balance re-check failure, got %v", err)
	}

	// The failed approval rolled back entirely: still pending, no debit.
	reloaded, err := f.svc.Decide(ctx, uuid.New(), request.ID, enums.WithdrawalStatusRefused)
	if err != nil {
		t.Fatalf("refuse after failed approval: %v", err)
	}
	if reloaded.Status != enums.WithdrawalStatusRefused {
		t.Fatalf("status = %s, want refused", reloaded.Status)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("50")) {
		t.Fatalf("balance = %s, want 50", f.balance(t))
	}
}

func TestDecideRefusedLeavesBalance(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	request, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("60"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	decided, err := f.svc.Decide(ctx, uuid.New(), request.ID, enums.WithdrawalStatusRefused)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Status != enums.WithdrawalStatusRefused {
		t.Fatalf("status = %s, want refused", decided.Status)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("100")) {
		t.Fatalf("refusal moved balance: %s", f.balance(t))
	}
}

func TestCancelOnlyWhilePendingAndOwned(t *testing.T) {
	t.Parallel()

	f := newWithdrawalFixture(t, "100")
	ctx := context.Background()

	request, err := f.svc.Request(ctx, f.accountID, enums.AccountTypeVendor, decimal.RequireFromString("60"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// A stranger cannot cancel someone else's request.
	err = f.svc.Cancel(ctx, uuid.New(), enums.AccountTypeVendor, request.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign cancel, got %v", err)
	}

	if err := f.svc.Cancel(ctx, f.accountID, enums.AccountTypeVendor, request.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err = f.svc.Cancel(ctx, f.accountID, enums.AccountTypeVendor, request.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second cancel, got %v", err)
	}

	var reloaded models.WithdrawalRequest
	if err := f.db.First(&reloaded, "id = ?", request.ID).Error; err != nil {
		t.Fatalf("load request: %v", err)
	}
	if reloaded.Status != enums.WithdrawalStatusRefused {
		t.Fatalf("status = %s, want refused", reloaded.Status)
	}
}
