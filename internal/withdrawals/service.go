// Package withdrawals runs the payout request lifecycle. Requesting never
// touches the balance; only an approval debits it, after re-checking the
// balance inside the deciding transaction.
package withdrawals

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages withdrawal requests end to end.
type Service interface {
	Request(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, amount decimal.Decimal) (*models.WithdrawalRequest, error)
	Decide(ctx context.Context, adminID, requestID uuid.UUID, outcome enums.WithdrawalStatus) (*models.WithdrawalRequest, error)
	Cancel(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, requestID uuid.UUID) error
	List(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.WithdrawalRequest, string, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	wallet  wallet.Service
	minimum decimal.Decimal
}

// NewService wires the withdrawals service.
func NewService(tx txRunner, repo Repository, walletSvc wallet.Service, cfg config.WalletConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("withdrawals repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if !cfg.WithdrawalMinimum.IsPositive() {
		return nil, fmt.Errorf("withdrawal minimum must be positive")
	}
	return &service{tx: tx, repo: repo, wallet: walletSvc, minimum: cfg.WithdrawalMinimum}, nil
}

func (s *service) Request(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, amount decimal.Decimal) (*models.WithdrawalRequest, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if amount.LessThan(s.minimum) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("withdrawal amount must be at least %s", s.minimum))
	}

	w, err := s.wallet.GetByAccount(ctx, accountID, accountType)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(w.Balance) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientBalance,
			"withdrawal amount exceeds current balance").
			WithDetails(map[string]string{
				"requested": amount.String(),
				"balance":   w.Balance.String(),
			})
	}

	request := &models.WithdrawalRequest{
		ID:       uuid.New(),
		WalletID: w.ID,
		Amount:   amount,
		Status:   enums.WithdrawalStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal request")
	}
	return request, nil
}

// Decide flips a pending request to approved or refused. Approval re-checks
// the balance through the ledger debit: if funds drifted below the requested
// amount since the request was made, the whole decision rolls back and the
// request stays pending.
func (s *service) Decide(ctx context.Context, adminID, requestID uuid.UUID, outcome enums.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if requestID == uuid.Nil || adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id and admin id required")
	}
	if outcome != enums.WithdrawalStatusApproved && outcome != enums.WithdrawalStatusRefused {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("outcome must be approved or refused, got %q", outcome))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.GetByID(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
		}

		claimed, err := repo.ClaimPending(ctx, requestID, outcome, adminID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim withdrawal request")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("withdrawal request is already %s", request.Status))
		}

		if outcome == enums.WithdrawalStatusApproved {
			owner, err := s.walletOwner(ctx, tx, request.WalletID)
			if err != nil {
				return err
			}
			reqID := request.ID
			if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
				AccountID:    owner.AccountID,
				AccountType:  owner.AccountType,
				Kind:         enums.TransactionKindWithdrawalPayout,
				Amount:       request.Amount,
				WithdrawalID: &reqID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, requestID)
}

// Cancel lets the requester withdraw a still-pending request. The refusal is
// recorded with the requester as decider.
func (s *service) Cancel(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, requestID uuid.UUID) error {
	if requestID == uuid.Nil || accountID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "request id and account id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		request, err := repo.GetByID(ctx, requestID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
		}

		w, err := s.wallet.GetByAccount(ctx, accountID, accountType)
		if err != nil {
			return err
		}
		if request.WalletID != w.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}

		claimed, err := repo.ClaimPending(ctx, requestID, enums.WithdrawalStatusRefused, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel withdrawal request")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("withdrawal request is already %s", request.Status))
		}
		return nil
	})
}

func (s *service) List(ctx context.Context, accountID uuid.UUID, accountType enums.AccountType, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	w, err := s.wallet.GetByAccount(ctx, accountID, accountType)
	if err != nil {
		return nil, "", err
	}
	requests, next, err := s.repo.ListByWallet(ctx, w.ID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawal requests")
	}
	return requests, next, nil
}

type walletOwner struct {
	AccountID   uuid.UUID
	AccountType enums.AccountType
}

func (s *service) walletOwner(ctx context.Context, tx *gorm.DB, walletID uuid.UUID) (*walletOwner, error) {
	var w models.Wallet
	if err := tx.WithContext(ctx).Where("id = ?", walletID).First(&w).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet owner")
	}
	return &walletOwner{AccountID: w.AccountID, AccountType: w.AccountType}, nil
}
