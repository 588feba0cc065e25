// Package orders owns the order aggregate after the split: reads, the
// pending-only modification window, and cancellation with full stock release.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/clients"
	"github.com/souqline/souqline-backend/internal/stock"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, lines []stock.Line) error
}

type stockEngine struct{}

func (stockEngine) Release(ctx context.Context, tx *gorm.DB, lines []stock.Line) error {
	return stock.Release(ctx, tx, lines)
}

// ModifyInput carries the fields a vendor may change while the order is
// still confirmation-pending.
type ModifyInput struct {
	Comment            *string                        `json:"comment,omitempty"`
	Source             *string                        `json:"source,omitempty"`
	Fragile            *bool                          `json:"fragile,omitempty"`
	Openable           *bool                          `json:"openable,omitempty"`
	Client             *clients.ContactInput          `json:"client,omitempty"`
	ConfirmationStatus *enums.OrderConfirmationStatus `json:"confirmation_status,omitempty"`
}

// Service exposes order reads, the modification window and cancellation.
type Service interface {
	Get(ctx context.Context, vendorID, orderID uuid.UUID) (*models.Order, error)
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, string, error)
	ListSupplierSubOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params, filters SubOrderFilters) ([]models.SubOrder, string, error)
	Modify(ctx context.Context, vendorID, orderID uuid.UUID, input ModifyInput) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) error
}

type service struct {
	tx          txRunner
	repo        Repository
	clientsRepo clients.Repository
	stock       stockReleaser
}

// NewService wires the orders service.
func NewService(tx txRunner, repo Repository, clientsRepo clients.Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if clientsRepo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	return &service{tx: tx, repo: repo, clientsRepo: clientsRepo, stock: stockEngine{}}, nil
}

func (s *service) Get(ctx context.Context, vendorID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil || vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and vendor id required")
	}
	order, err := s.repo.GetVendorOrder(ctx, orderID, vendorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, string, error) {
	if vendorID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	orders, next, err := s.repo.ListVendorOrders(ctx, vendorID, params, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, next, nil
}

func (s *service) ListSupplierSubOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params, filters SubOrderFilters) ([]models.SubOrder, string, error) {
	if supplierID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	subs, next, err := s.repo.ListSupplierSubOrders(ctx, supplierID, params, filters)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sub-orders")
	}
	return subs, next, nil
}

// Modify edits an order inside the confirmation-pending window. Setting the
// confirmation state to cancelled is the compensating path and releases
// every reservation across every sub-order.
func (s *service) Modify(ctx context.Context, vendorID, orderID uuid.UUID, input ModifyInput) (*models.Order, error) {
	if orderID == uuid.Nil || vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and vendor id required")
	}
	if input.ConfirmationStatus != nil && !input.ConfirmationStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid confirmation status %q", *input.ConfirmationStatus))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.GetVendorOrder(ctx, orderID, vendorID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.ConfirmationStatus != enums.OrderConfirmationStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %s is %s and can no longer be modified", order.Code, order.ConfirmationStatus))
		}

		if input.ConfirmationStatus != nil && *input.ConfirmationStatus == enums.OrderConfirmationStatusCancelled {
			return s.cancelInTx(ctx, tx, order, "cancelled by vendor")
		}

		if input.Client != nil {
			client, cerr := s.clientsRepo.WithTx(tx).LookupOrCreate(ctx, *input.Client)
			if cerr != nil {
				return cerr
			}
			order.ClientID = client.ID
		}
		if input.Comment != nil {
			order.Comment = input.Comment
		}
		if input.Source != nil {
			order.Source = input.Source
		}
		if input.Fragile != nil {
			order.Fragile = *input.Fragile
		}
		if input.Openable != nil {
			order.Openable = *input.Openable
		}
		if input.ConfirmationStatus != nil {
			order.ConfirmationStatus = *input.ConfirmationStatus
		}
		if err := repo.SaveOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetVendorOrder(ctx, orderID, vendorID)
}

// Cancel releases every live reservation of the order and marks the whole
// aggregate cancelled. Used by the vendor path and the pending-order expiry
// cron.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).GetOrder(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		return s.cancelInTx(ctx, tx, order, reason)
	})
}

func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, order *models.Order, reason string) error {
	repo := s.repo.WithTx(tx)

	cancelledAny := false
	now := time.Now().UTC()
	for i := range order.SubOrders {
		sub := &order.SubOrders[i]
		if !sub.Status.HoldsReservation() {
			continue
		}
		cancelledAny = true

		if err := s.stock.Release(ctx, tx, linesOf(sub.Lines)); err != nil {
			return err
		}

		event := &models.TrackingEvent{
			ID:          uuid.New(),
			SubOrderID:  sub.ID,
			OldStatus:   sub.Status,
			NewStatus:   enums.DeliveryStatusCancelled,
			Description: reason,
		}
		if err := repo.CreateTracking(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record tracking")
		}

		sub.Status = enums.DeliveryStatusCancelled
		sub.CancelledAt = &now
		if err := repo.SaveSubOrder(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save sub-order")
		}
	}
	if !cancelledAny {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order %s has no sub-order left to cancel", order.Code))
	}

	statuses, err := repo.SubOrderStatuses(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-order statuses")
	}
	if err := repo.SetOrderState(ctx, order.ID, DeriveOrderState(statuses)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set order state")
	}
	if err := repo.SetConfirmationStatus(ctx, order.ID, enums.OrderConfirmationStatusCancelled); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set confirmation status")
	}
	return nil
}

func linesOf(lines []models.OrderLine) []stock.Line {
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
