package fees

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/souqline/souqline-backend/pkg/config"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()

	calc, err := NewCalculator(config.FeesConfig{
		SingleSupplierDeliveryFee: decimal.RequireFromString("8.0"),
		PerSupplierDeliveryFee:    decimal.RequireFromString("7.5"),
		PlatformFeeRate:           decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	return calc
}

func d(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return v
}

func TestComputeSingleSupplier(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	breakdown, err := calc.Compute([]Line{
		{Qty: 3, UnitSale: d(t, "10"), UnitWholesale: d(t, "6")},
	}, 1)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	if !breakdown.Subtotal.Equal(d(t, "30")) {
		t.Fatalf("subtotal = %s, want 30", breakdown.Subtotal)
	}
	if !breakdown.DeliveryFee.Equal(d(t, "8.0")) {
		t.Fatalf("delivery fee = %s, want 8.0", breakdown.DeliveryFee)
	}
	if !breakdown.PlatformFee.Equal(d(t, "1.8")) {
		t.Fatalf("platform fee = %s, want 1.8", breakdown.PlatformFee)
	}
	if !breakdown.GrandTotal.Equal(d(t, "38")) {
		t.Fatalf("grand total = %s, want 38", breakdown.GrandTotal)
	}
	// gross margin 4.0 less the full fee spread over 3 units: 4 - 1.8/3
	if !breakdown.UnitMargins[0].Equal(d(t, "3.4")) {
		t.Fatalf("unit margin = %s, want 3.4", breakdown.UnitMargins[0])
	}
}

func TestComputeMultiSupplierDeliveryFee(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	if fee := calc.DeliveryFee(2); !fee.Equal(d(t, "15.0")) {
		t.Fatalf("delivery fee for 2 suppliers = %s, want 15.0", fee)
	}
	if fee := calc.DeliveryFee(4); !fee.Equal(d(t, "30.0")) {
		t.Fatalf("delivery fee for 4 suppliers = %s, want 30.0", fee)
	}
}

func TestComputeApportionsFeeByRevenueShare(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	breakdown, err := calc.Compute([]Line{
		{Qty: 1, UnitSale: d(t, "30"), UnitWholesale: d(t, "20")},
		{Qty: 2, UnitSale: d(t, "5"), UnitWholesale: d(t, "3")},
	}, 2)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	// wholesale total 26, platform fee 2.6, revenue 40
	if !breakdown.PlatformFee.Equal(d(t, "2.6")) {
		t.Fatalf("platform fee = %s, want 2.6", breakdown.PlatformFee)
	}
	// line 1: 10 - 2.6*(30/40)/1 = 8.05
	if !breakdown.UnitMargins[0].Equal(d(t, "8.05")) {
		t.Fatalf("line 1 margin = %s, want 8.05", breakdown.UnitMargins[0])
	}
	// line 2: 2 - 2.6*(10/40)/2 = 1.675
	if !breakdown.UnitMargins[1].Equal(d(t, "1.675")) {
		t.Fatalf("line 2 margin = %s, want 1.675", breakdown.UnitMargins[1])
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	t.Parallel()

	calc := newTestCalculator(t)
	if _, err := calc.Compute(nil, 1); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for empty cart")
	}
	_, err := calc.Compute([]Line{{Qty: 0, UnitSale: d(t, "1"), UnitWholesale: d(t, "1")}}, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewCalculatorRejectsMalformedConfig(t *testing.T) {
	t.Parallel()

	_, err := NewCalculator(config.FeesConfig{
		SingleSupplierDeliveryFee: decimal.RequireFromString("8.0"),
		PerSupplierDeliveryFee:    decimal.RequireFromString("7.5"),
		PlatformFeeRate:           decimal.RequireFromString("1.5"),
	})
	if err == nil {
		t.Fatal("expected config rejection")
	}
}
