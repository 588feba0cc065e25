// Package checkout implements the order splitter: one cart in, one order
// with one sub-order per supplier out, priced and stock-reserved in a single
// transaction.
package checkout

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/catalog"
	"github.com/souqline/souqline-backend/internal/clients"
	"github.com/souqline/souqline-backend/internal/fees"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/stock"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
	"github.com/souqline/souqline-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockReserver interface {
	Reserve(ctx context.Context, tx *gorm.DB, lines []stock.Line) ([]stock.LowStockAlert, error)
}

type stockEngine struct{}

func (stockEngine) Reserve(ctx context.Context, tx *gorm.DB, lines []stock.Line) ([]stock.LowStockAlert, error) {
	return stock.Reserve(ctx, tx, lines)
}

type lowStockNotifier interface {
	LowStock(ctx context.Context, alerts []stock.LowStockAlert)
}

// LineInput is one requested cart line. SalePrice is the price the vendor
// saw when building the cart; when present it must still match the catalog.
type LineInput struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	VariantID *uuid.UUID       `json:"variant_id,omitempty"`
	Qty       int              `json:"qty" validate:"required,gt=0"`
	SalePrice *decimal.Decimal `json:"sale_price,omitempty"`
}

// CheckoutInput is everything the splitter needs to build an order.
type CheckoutInput struct {
	Client              clients.ContactInput `json:"client" validate:"required"`
	Lines               []LineInput          `json:"lines" validate:"required,min=1,dive"`
	Comment             *string              `json:"comment,omitempty"`
	Source              *string              `json:"source,omitempty"`
	Fragile             bool                 `json:"fragile"`
	Openable            bool                 `json:"openable"`
	RequireConfirmation bool                 `json:"require_confirmation"`
}

// Service executes the checkout orchestration.
type Service interface {
	Execute(ctx context.Context, vendorID uuid.UUID, input CheckoutInput) (*models.Order, error)
}

type service struct {
	tx          txRunner
	catalogRepo catalog.Repository
	clientsRepo clients.Repository
	ordersRepo  orders.Repository
	calculator  *fees.Calculator
	stock       stockReserver
	notifier    lowStockNotifier
	meter       *metrics.LedgerMetrics
}

// NewService builds the checkout service. The notifier and meter may be nil
// when no sink or registry is configured.
func NewService(
	tx txRunner,
	catalogRepo catalog.Repository,
	clientsRepo clients.Repository,
	ordersRepo orders.Repository,
	calculator *fees.Calculator,
	notifier lowStockNotifier,
	meter *metrics.LedgerMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if clientsRepo == nil {
		return nil, fmt.Errorf("clients repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	return &service{
		tx:          tx,
		catalogRepo: catalogRepo,
		clientsRepo: clientsRepo,
		ordersRepo:  ordersRepo,
		calculator:  calculator,
		stock:       stockEngine{},
		notifier:    notifier,
		meter:       meter,
	}, nil
}

type pricedLine struct {
	input   LineInput
	product *models.Product
	margin  decimal.Decimal
}

func (s *service) Execute(ctx context.Context, vendorID uuid.UUID, input CheckoutInput) (*models.Order, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line required")
	}

	var created *models.Order
	var alerts []stock.LowStockAlert
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalogRepo.WithTx(tx)
		ordersRepo := s.ordersRepo.WithTx(tx)

		priced, err := s.resolveLines(ctx, catalogRepo, input.Lines)
		if err != nil {
			return err
		}

		client, err := s.clientsRepo.WithTx(tx).LookupOrCreate(ctx, input.Client)
		if err != nil {
			return err
		}

		feeLines := make([]fees.Line, len(priced))
		for i, p := range priced {
			feeLines[i] = fees.Line{
				Qty:           p.input.Qty,
				UnitSale:      p.product.SalePrice,
				UnitWholesale: p.product.WholesalePrice,
			}
		}
		groups := groupBySupplier(priced)
		breakdown, err := s.calculator.Compute(feeLines, len(groups))
		if err != nil {
			return err
		}
		for i := range priced {
			priced[i].margin = breakdown.UnitMargins[i]
		}
		groups = groupBySupplier(priced)

		confirmation := enums.OrderConfirmationStatusConfirmed
		if input.RequireConfirmation {
			confirmation = enums.OrderConfirmationStatusPending
		}

		order := &models.Order{
			ID:                 uuid.New(),
			Code:               orders.NewOrderCode(),
			VendorID:           vendorID,
			ClientID:           client.ID,
			Comment:            input.Comment,
			Source:             input.Source,
			Fragile:            input.Fragile,
			Openable:           input.Openable,
			ConfirmationStatus: confirmation,
			State:              enums.OrderStatePending,
			Subtotal:           breakdown.Subtotal,
			DeliveryFee:        breakdown.DeliveryFee,
			PlatformFee:        breakdown.PlatformFee,
			GrandTotal:         breakdown.GrandTotal,
		}

		for _, supplierID := range sortedSupplierIDs(groups) {
			sub := models.SubOrder{
				ID:         uuid.New(),
				Code:       orders.NewSubOrderCode(),
				OrderID:    order.ID,
				SupplierID: supplierID,
				Status:     enums.DeliveryStatusPending,
			}
			for _, p := range groups[supplierID] {
				sub.Total = sub.Total.Add(p.product.SalePrice.Mul(decimal.NewFromInt(int64(p.input.Qty))))
				sub.Lines = append(sub.Lines, models.OrderLine{
					ID:                 uuid.New(),
					SubOrderID:         sub.ID,
					ProductID:          p.product.ID,
					VariantID:          p.input.VariantID,
					Name:               p.product.Name,
					Qty:                p.input.Qty,
					UnitSalePrice:      p.product.SalePrice,
					UnitWholesalePrice: p.product.WholesalePrice,
					UnitMargin:         p.margin,
				})
			}
			order.SubOrders = append(order.SubOrders, sub)
		}

		if err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		// Reservation runs last so any failure above never touches stock.
		stockLines := make([]stock.Line, len(priced))
		for i, p := range priced {
			stockLines[i] = stock.Line{
				ProductID: p.product.ID,
				VariantID: p.input.VariantID,
				Qty:       p.input.Qty,
			}
		}
		alerts, err = s.stock.Reserve(ctx, tx, stockLines)
		if err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			s.meter.IncStockRejection()
		}
		return nil, err
	}

	s.meter.IncOrdersCreated()
	if s.notifier != nil && len(alerts) > 0 {
		s.notifier.LowStock(ctx, alerts)
	}
	return created, nil
}

func (s *service) resolveLines(ctx context.Context, repo catalog.Repository, inputs []LineInput) ([]pricedLine, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, line := range inputs {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line missing product id")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	products, err := repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	priced := make([]pricedLine, 0, len(inputs))
	for _, line := range inputs {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s not found", line.ProductID))
		}
		if line.VariantID != nil && !hasVariant(product, *line.VariantID) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("variant %s not found for product %s", line.VariantID, product.ID))
		}
		// The catalog stays authoritative; a stale cart price is rejected
		// instead of silently repriced.
		if line.SalePrice != nil && !line.SalePrice.Equal(product.SalePrice) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("sale price changed for product %s", product.ID))
		}
		priced = append(priced, pricedLine{input: line, product: product})
	}
	return priced, nil
}

func hasVariant(product *models.Product, variantID uuid.UUID) bool {
	for _, v := range product.Variants {
		if v.ID == variantID {
			return true
		}
	}
	return false
}

func groupBySupplier(priced []pricedLine) map[uuid.UUID][]pricedLine {
	groups := map[uuid.UUID][]pricedLine{}
	for _, p := range priced {
		groups[p.product.SupplierID] = append(groups[p.product.SupplierID], p)
	}
	return groups
}

// sortedSupplierIDs keeps sub-order creation order deterministic.
func sortedSupplierIDs(groups map[uuid.UUID][]pricedLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
