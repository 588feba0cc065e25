// Package referrals implements vendor signup with the multi-level referral
// cascade: edge creation up to the configured depth and, when a paid pack is
// bought at signup, bonus credits to every ancestor in the chain.
package referrals

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SignupInput registers a new vendor account.
type SignupInput struct {
	Name         string     `json:"name" validate:"required"`
	Email        string     `json:"email" validate:"required,email"`
	Phone        *string    `json:"phone,omitempty"`
	ReferralCode *string    `json:"referral_code,omitempty"`
	PackID       *uuid.UUID `json:"pack_id,omitempty"`
}

// Service creates vendors and runs the referral cascade.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*models.Vendor, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	wallet wallet.Service
	cfg    config.ReferralConfig
}

// NewService wires the referrals service.
func NewService(tx txRunner, repo Repository, walletSvc wallet.Service, cfg config.ReferralConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("referrals repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if cfg.MaxDepth < 1 {
		return nil, fmt.Errorf("referral max depth must be at least 1")
	}
	return &service{tx: tx, repo: repo, wallet: walletSvc, cfg: cfg}, nil
}

// Signup creates the vendor, the referral edges up to the configured depth
// and, when a pack id is supplied, posts the pack-purchase charge plus one
// referral bonus per ancestor, all in a single transaction.
func (s *service) Signup(ctx context.Context, input SignupInput) (*models.Vendor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor name required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor email required")
	}

	var created *models.Vendor
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		vendor := &models.Vendor{
			ID:           uuid.New(),
			Name:         strings.TrimSpace(input.Name),
			Email:        email,
			Phone:        input.Phone,
			ReferralCode: newReferralCode(),
		}
		if err := repo.CreateVendor(ctx, vendor); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a vendor with this email already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
		}

		edges, err := s.buildEdges(ctx, repo, vendor.ID, input.ReferralCode)
		if err != nil {
			return err
		}
		if err := repo.CreateEdges(ctx, edges); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create referral edges")
		}

		if input.PackID != nil {
			if err := s.purchasePack(ctx, tx, repo, vendor, *input.PackID, edges); err != nil {
				return err
			}
		}

		created = vendor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// buildEdges resolves the referrer and walks its own chain upward, shifting
// every ancestor one level down for the new vendor. Levels beyond the
// configured depth are dropped.
func (s *service) buildEdges(ctx context.Context, repo Repository, newVendorID uuid.UUID, code *string) ([]models.ReferralEdge, error) {
	if code == nil || strings.TrimSpace(*code) == "" {
		return nil, nil
	}

	referrer, err := repo.FindVendorByReferralCode(ctx, strings.TrimSpace(*code))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
	}

	edges := []models.ReferralEdge{{
		ID:         uuid.New(),
		ReferrerID: referrer.ID,
		ReferredID: newVendorID,
		Level:      1,
	}}
	ancestors, err := repo.AncestorsOf(ctx, referrer.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "walk referral chain")
	}
	for _, ancestor := range ancestors {
		level := ancestor.Level + 1
		if level > s.cfg.MaxDepth {
			continue
		}
		edges = append(edges, models.ReferralEdge{
			ID:         uuid.New(),
			ReferrerID: ancestor.ReferrerID,
			ReferredID: newVendorID,
			Level:      level,
		})
	}
	return edges, nil
}

func (s *service) purchasePack(ctx context.Context, tx *gorm.DB, repo Repository, vendor *models.Vendor, packID uuid.UUID, edges []models.ReferralEdge) error {
	pack, err := repo.FindActivePack(ctx, packID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pack not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pack")
	}

	note := fmt.Sprintf("pack %s", pack.Name)
	if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
		AccountID:   vendor.ID,
		AccountType: enums.AccountTypeVendor,
		Kind:        enums.TransactionKindPackPurchase,
		Amount:      pack.Price,
		Note:        &note,
	}); err != nil {
		return err
	}

	for _, edge := range edges {
		level := edge.Level
		bonus := pack.Price.Mul(s.cfg.RateForLevel(level))
		if !bonus.IsPositive() {
			continue
		}
		if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
			AccountID:        edge.ReferrerID,
			AccountType:      enums.AccountTypeVendor,
			Kind:             enums.TransactionKindReferralBonus,
			Amount:           bonus,
			ReferredVendorID: &vendor.ID,
			ReferralLevel:    &level,
		}); err != nil {
			return err
		}
	}
	return nil
}

func newReferralCode() string {
	return "REF-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
