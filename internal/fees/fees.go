// Package fees computes the money split for a checkout: delivery fee,
// platform fee, and the per-line net unit margins that later drive the
// wallet credits on delivery.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/config"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

// marginScale matches the numeric(12,4) precision of the stored unit margin.
const marginScale = 4

// Line is one cart line as priced at checkout time.
type Line struct {
	Qty           int
	UnitSale      decimal.Decimal
	UnitWholesale decimal.Decimal
}

// Breakdown is the full fee result for a cart. UnitMargins is positional
// with the input lines.
type Breakdown struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	PlatformFee decimal.Decimal
	GrandTotal  decimal.Decimal
	UnitMargins []decimal.Decimal
}

// Calculator holds the parsed fee parameters.
type Calculator struct {
	singleSupplierDelivery decimal.Decimal
	perSupplierDelivery    decimal.Decimal
	platformRate           decimal.Decimal
}

func NewCalculator(cfg config.FeesConfig) (*Calculator, error) {
	if cfg.SingleSupplierDeliveryFee.IsNegative() || cfg.PerSupplierDeliveryFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "delivery fees cannot be negative")
	}
	if cfg.PlatformFeeRate.IsNegative() || cfg.PlatformFeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform fee rate must be within [0, 1]")
	}
	return &Calculator{
		singleSupplierDelivery: cfg.SingleSupplierDeliveryFee,
		perSupplierDelivery:    cfg.PerSupplierDeliveryFee,
		platformRate:           cfg.PlatformFeeRate,
	}, nil
}

// DeliveryFee is flat for a single-supplier cart and scales per supplier
// beyond that.
func (c *Calculator) DeliveryFee(supplierCount int) decimal.Decimal {
	if supplierCount <= 1 {
		return c.singleSupplierDelivery
	}
	return c.perSupplierDelivery.Mul(decimal.NewFromInt(int64(supplierCount)))
}

// Compute prices a cart. The platform fee is taken from the wholesale total
// and absorbed into the margin split; the customer pays subtotal plus
// delivery only.
func (c *Calculator) Compute(lines []Line, supplierCount int) (*Breakdown, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot price an empty cart")
	}

	subtotal := decimal.Zero
	wholesaleTotal := decimal.Zero
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		qty := decimal.NewFromInt(int64(line.Qty))
		subtotal = subtotal.Add(line.UnitSale.Mul(qty))
		wholesaleTotal = wholesaleTotal.Add(line.UnitWholesale.Mul(qty))
	}

	platformFee := wholesaleTotal.Mul(c.platformRate)
	deliveryFee := c.DeliveryFee(supplierCount)

	margins := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		margins[i] = c.unitMargin(line, platformFee, subtotal)
	}

	return &Breakdown{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		PlatformFee: platformFee,
		GrandTotal:  subtotal.Add(deliveryFee),
		UnitMargins: margins,
	}, nil
}

// unitMargin scales the line's gross margin down by the line's revenue share
// of the platform fee, spread across its units.
func (c *Calculator) unitMargin(line Line, platformFee, totalRevenue decimal.Decimal) decimal.Decimal {
	gross := line.UnitSale.Sub(line.UnitWholesale)
	if totalRevenue.IsZero() {
		return gross.Round(marginScale)
	}
	qty := decimal.NewFromInt(int64(line.Qty))
	lineRevenue := line.UnitSale.Mul(qty)
	feeShare := platformFee.Mul(lineRevenue).Div(totalRevenue).Div(qty)
	return gross.Sub(feeShare).Round(marginScale)
}
