package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

// Line identifies one stock movement target. When VariantID is set the
// movement lands on the variant counters, otherwise on the product's.
type Line struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int
}

// Shortfall describes one line that failed the reservation dry-run.
type Shortfall struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Product   string     `json:"product"`
	Requested int        `json:"requested"`
	Available int        `json:"available"`
	Reason    string     `json:"reason"`
}

// LowStockAlert flags a target whose availability fell to its threshold
// after a successful reservation.
type LowStockAlert struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Product   string     `json:"product"`
	Remaining int        `json:"remaining"`
}

type target struct {
	productID uuid.UUID
	variantID *uuid.UUID
	qty       int
}

// Reserve atomically moves quantity from available to reserved for every
// line. The check is all-or-nothing across the whole cart: if any line is
// below its product's low-stock threshold or short on quantity, nothing is
// mutated and the returned error carries one Shortfall per failing line.
// Must run inside the caller's transaction.
func Reserve(ctx context.Context, tx *gorm.DB, lines []Line) ([]LowStockAlert, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	targets, err := groupLines(lines)
	if err != nil {
		return nil, err
	}

	var shortfalls []Shortfall
	var alerts []LowStockAlert
	for _, t := range targets {
		product, err := loadProduct(ctx, tx, t.productID)
		if err != nil {
			return nil, err
		}
		available, err := availableFor(ctx, tx, product, t.variantID)
		if err != nil {
			return nil, err
		}

		switch {
		case available <= product.LowStockThreshold:
			shortfalls = append(shortfalls, Shortfall{
				ProductID: t.productID,
				VariantID: t.variantID,
				Product:   product.Name,
				Requested: t.qty,
				Available: available,
				Reason:    "stock at or below low-stock threshold",
			})
		case available < t.qty:
			shortfalls = append(shortfalls, Shortfall{
				ProductID: t.productID,
				VariantID: t.variantID,
				Product:   product.Name,
				Requested: t.qty,
				Available: available,
				Reason:    "insufficient stock",
			})
		default:
			if available-t.qty <= product.LowStockThreshold {
				alerts = append(alerts, LowStockAlert{
					ProductID: t.productID,
					VariantID: t.variantID,
					Product:   product.Name,
					Remaining: available - t.qty,
				})
			}
		}
	}
	if len(shortfalls) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("%d line(s) failed the stock check", len(shortfalls))).
			WithDetails(shortfalls)
	}

	for _, t := range targets {
		if err := applyReserve(ctx, tx, t); err != nil {
			return nil, err
		}
	}
	return alerts, nil
}

// Release returns reserved quantity to availability. Callers guarantee
// at-most-once semantics per sub-order via the delivery state guard; a guard
// miss here means the counters drifted and is surfaced as an error.
func Release(ctx context.Context, tx *gorm.DB, lines []Line) error {
	return moveReserved(ctx, tx, lines, true)
}

// Finalize consumes reserved quantity on delivery, the second and last stock
// movement of a line's life.
func Finalize(ctx context.Context, tx *gorm.DB, lines []Line) error {
	return moveReserved(ctx, tx, lines, false)
}

func moveReserved(ctx context.Context, tx *gorm.DB, lines []Line, restock bool) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock movement")
	}
	targets, err := groupLines(lines)
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range targets {
		res := execMove(ctx, tx, t, restock)
		if res.Error != nil {
			errs = append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stock movement"))
			continue
		}
		if res.RowsAffected == 0 {
			errs = append(errs, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("reserved stock for product %s under %d", t.productID, t.qty)))
		}
	}
	return multierr.Combine(errs...)
}

func execMove(ctx context.Context, tx *gorm.DB, t target, restock bool) *gorm.DB {
	availableDelta := 0
	if restock {
		availableDelta = t.qty
	}
	if t.variantID != nil {
		return tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET available_qty = available_qty + ?,
				reserved_qty = reserved_qty - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND reserved_qty >= ?
		`, availableDelta, t.qty, *t.variantID, t.qty)
	}
	return tx.WithContext(ctx).Exec(`
		UPDATE products
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty >= ?
	`, availableDelta, t.qty, t.productID, t.qty)
}

func applyReserve(ctx context.Context, tx *gorm.DB, t target) error {
	var res *gorm.DB
	if t.variantID != nil {
		res = tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET available_qty = available_qty - ?,
				reserved_qty = reserved_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND available_qty >= ?
		`, t.qty, t.qty, *t.variantID, t.qty)
	} else {
		res = tx.WithContext(ctx).Exec(`
			UPDATE products
			SET available_qty = available_qty - ?,
				reserved_qty = reserved_qty + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND available_qty >= ?
		`, t.qty, t.qty, t.productID, t.qty)
	}
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		// A concurrent transaction consumed the stock between the dry-run
		// and the update; the whole reservation rolls back with it.
		return pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("stock for product %s depleted concurrently", t.productID))
	}
	return nil
}

func groupLines(lines []Line) ([]target, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no stock lines provided")
	}
	index := map[string]int{}
	targets := make([]target, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock line missing product id")
		}
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock line quantity must be positive")
		}
		key := line.ProductID.String()
		if line.VariantID != nil {
			key += ":" + line.VariantID.String()
		}
		if i, ok := index[key]; ok {
			targets[i].qty += line.Qty
			continue
		}
		index[key] = len(targets)
		targets = append(targets, target{
			productID: line.ProductID,
			variantID: line.VariantID,
			qty:       line.Qty,
		})
	}
	return targets, nil
}

func loadProduct(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func availableFor(ctx context.Context, tx *gorm.DB, product *models.Product, variantID *uuid.UUID) (int, error) {
	if variantID == nil {
		return product.AvailableQty, nil
	}
	var variant models.ProductVariant
	err := tx.WithContext(ctx).
		Where("id = ? AND product_id = ?", *variantID, product.ID).
		First(&variant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("variant %s not found for product %s", variantID, product.ID))
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return variant.AvailableQty, nil
}
