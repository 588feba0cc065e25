// Package fulfillment drives the per-sub-order delivery state machine:
// label normalization, tracking history, the delivered-state settlement and
// the compensating movements for returns and cancellations.
package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/stock"
	"github.com/souqline/souqline-backend/internal/wallet"
	"github.com/souqline/souqline-backend/pkg/config"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockMover interface {
	Release(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
	Finalize(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
}

type stockEngine struct{}

func (stockEngine) Release(ctx context.Context, tx *gorm.DB, lines []stock.Line) error {
	return stock.Release(ctx, tx, lines)
}

func (stockEngine) Finalize(ctx context.Context, tx *gorm.DB, lines []stock.Line) error {
	return stock.Finalize(ctx, tx, lines)
}

type penaltyNotifier interface {
	PenaltyApplied(ctx context.Context, subOrderCode string, amount decimal.Decimal)
}

// AdvanceInput is one incoming fulfillment status update. Status accepts
// canonical values and the legacy carrier labels.
type AdvanceInput struct {
	Status      string `json:"status" validate:"required"`
	Description string `json:"description"`
}

// Service advances sub-orders through the delivery lifecycle.
type Service interface {
	Advance(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, subOrderID uuid.UUID, input AdvanceInput) (*models.SubOrder, error)
}

type service struct {
	tx       txRunner
	repo     orders.Repository
	wallet   wallet.Service
	stock    stockMover
	notifier penaltyNotifier
	penalty  decimal.Decimal
}

// NewService wires the fulfillment service. The notifier may be nil.
func NewService(
	tx txRunner,
	repo orders.Repository,
	walletSvc wallet.Service,
	cfg config.WalletConfig,
	notifier penaltyNotifier,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if !cfg.ReturnPenalty.IsPositive() {
		return nil, fmt.Errorf("return penalty must be positive")
	}
	return &service{
		tx:       tx,
		repo:     repo,
		wallet:   walletSvc,
		stock:    stockEngine{},
		notifier: notifier,
		penalty:  cfg.ReturnPenalty,
	}, nil
}

func (s *service) Advance(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, subOrderID uuid.UUID, input AdvanceInput) (*models.SubOrder, error) {
	if subOrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sub-order id required")
	}
	next, err := enums.ParseDeliveryStatus(input.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unrecognized delivery status %q", input.Status))
	}

	var penalized bool
	var result *models.SubOrder
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub, err := repo.GetSubOrder(ctx, subOrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order")
		}
		if role == enums.ActorRoleSupplier && sub.SupplierID != actorID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "sub-order not found")
		}

		// Delivered is terminal. The guard doubles as the exactly-once
		// protection for the settlement credits.
		if sub.Status == enums.DeliveryStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("sub-order %s is delivered and cannot change state", sub.Code))
		}

		order, err := repo.GetOrder(ctx, sub.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load parent order")
		}

		prev := sub.Status
		event := &models.TrackingEvent{
			ID:          uuid.New(),
			SubOrderID:  sub.ID,
			OldStatus:   prev,
			NewStatus:   next,
			Description: input.Description,
		}
		if err := repo.CreateTracking(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tracking")
		}

		// Any explicit status movement confirms a still-pending order.
		if order.ConfirmationStatus == enums.OrderConfirmationStatusPending && next != enums.DeliveryStatusPending {
			if err := repo.SetConfirmationStatus(ctx, order.ID, enums.OrderConfirmationStatusConfirmed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm order")
			}
		}

		now := time.Now().UTC()
		switch next {
		case enums.DeliveryStatusDelivered:
			if err := s.settleDelivery(ctx, tx, order, sub); err != nil {
				return err
			}
			sub.DeliveredAt = &now
		case enums.DeliveryStatusReturned:
			if prev != enums.DeliveryStatusReturned {
				if err := s.applyReturn(ctx, tx, order, sub, prev); err != nil {
					return err
				}
				penalized = true
				sub.ReturnedAt = &now
			}
		case enums.DeliveryStatusCancelled:
			if prev.HoldsReservation() {
				if err := s.stock.Release(ctx, tx, stockLines(sub.Lines)); err != nil {
					return err
				}
			}
			sub.CancelledAt = &now
		}

		sub.Status = next
		if err := repo.SaveSubOrder(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sub-order")
		}

		statuses, err := repo.SubOrderStatuses(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order statuses")
		}
		if err := repo.SetOrderState(ctx, order.ID, orders.DeriveOrderState(statuses)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order state")
		}

		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	if penalized && s.notifier != nil {
		s.notifier.PenaltyApplied(ctx, result.Code, s.penalty)
	}
	return result, nil
}

// settleDelivery consumes the reservation and posts the two settlement
// credits: the vendor's net margin and the supplier's wholesale revenue.
func (s *service) settleDelivery(ctx context.Context, tx *gorm.DB, order *models.Order, sub *models.SubOrder) error {
	if err := s.stock.Finalize(ctx, tx, stockLines(sub.Lines)); err != nil {
		return err
	}

	margin := decimal.Zero
	revenue := decimal.Zero
	for _, line := range sub.Lines {
		qty := decimal.NewFromInt(int64(line.Qty))
		margin = margin.Add(line.UnitMargin.Mul(qty))
		revenue = revenue.Add(line.UnitWholesalePrice.Mul(qty))
	}

	if margin.IsPositive() {
		if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
			AccountID:   order.VendorID,
			AccountType: enums.AccountTypeVendor,
			Kind:        enums.TransactionKindSaleProfit,
			Amount:      margin,
			OrderID:     &order.ID,
			SubOrderID:  &sub.ID,
		}); err != nil {
			return err
		}
	}
	if revenue.IsPositive() {
		if _, err := s.wallet.Credit(ctx, tx, wallet.EntryInput{
			AccountID:   sub.SupplierID,
			AccountType: enums.AccountTypeSupplier,
			Kind:        enums.TransactionKindSaleRevenue,
			Amount:      revenue,
			OrderID:     &order.ID,
			SubOrderID:  &sub.ID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// applyReturn debits the flat return penalty and puts the reserved stock
// back on shelf. Stock only moves when the previous state still held the
// reservation, which makes duplicate return webhooks harmless.
func (s *service) applyReturn(ctx context.Context, tx *gorm.DB, order *models.Order, sub *models.SubOrder, prev enums.DeliveryStatus) error {
	note := fmt.Sprintf("return penalty for %s", sub.Code)
	if _, err := s.wallet.Debit(ctx, tx, wallet.EntryInput{
		AccountID:   order.VendorID,
		AccountType: enums.AccountTypeVendor,
		Kind:        enums.TransactionKindReturnPenalty,
		Amount:      s.penalty,
		OrderID:     &order.ID,
		SubOrderID:  &sub.ID,
		Note:        &note,
	}); err != nil {
		return err
	}

	if prev.HoldsReservation() {
		if err := s.stock.Release(ctx, tx, stockLines(sub.Lines)); err != nil {
			return err
		}
	}
	return nil
}

func stockLines(lines []models.OrderLine) []stock.Line {
	out := make([]stock.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, stock.Line{
			ProductID: line.ProductID,
			VariantID: line.VariantID,
			Qty:       line.Qty,
		})
	}
	return out
}
