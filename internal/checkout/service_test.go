package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/internal/catalog"
	"github.com/souqline/souqline-backend/internal/clients"
	"github.com/souqline/souqline-backend/internal/fees"
	"github.com/souqline/souqline-backend/internal/orders"
	"github.com/souqline/souqline-backend/internal/stock"
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

type captureNotifier struct {
	alerts []stock.LowStockAlert
}

func (n *captureNotifier) LowStock(_ context.Context, alerts []stock.LowStockAlert) {
	n.alerts = append(n.alerts, alerts...)
}

func newCheckoutTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  name TEXT NOT NULL,
  sale_price NUMERIC NOT NULL DEFAULT 0,
  wholesale_price NUMERIC NOT NULL DEFAULT 0,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  low_stock_threshold INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS clients (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  phone TEXT NOT NULL,
  address TEXT NOT NULL,
  city TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  vendor_id TEXT NOT NULL,
  client_id TEXT NOT NULL,
  comment TEXT,
  source TEXT,
  fragile INTEGER NOT NULL DEFAULT 0,
  openable INTEGER NOT NULL DEFAULT 0,
  confirmation_status TEXT NOT NULL DEFAULT 'pending',
  state TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL,
  platform_fee NUMERIC NOT NULL,
  grand_total NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS sub_orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  order_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  delivered_at DATETIME,
  returned_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_lines (
  id TEXT PRIMARY KEY,
  sub_order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  unit_sale_price NUMERIC NOT NULL,
  unit_wholesale_price NUMERIC NOT NULL,
  unit_margin NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS tracking_events (
  id TEXT PRIMARY KEY,
  sub_order_id TEXT NOT NULL,
  old_status TEXT NOT NULL,
  new_status TEXT NOT NULL,
  description TEXT NOT NULL,
  created_at DATETIME
);`,
	} {
		if err := db.Exec(ddl).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func newCheckoutService(t *testing.T, db *gorm.DB, notifier lowStockNotifier) Service {
	t.Helper()

	calc, err := fees.NewCalculator(config.FeesConfig{
		SingleSupplierDeliveryFee: decimal.RequireFromString("8.0"),
		PerSupplierDeliveryFee:    decimal.RequireFromString("7.5"),
		PlatformFeeRate:           decimal.RequireFromString("0.10"),
	})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	svc, err := NewService(
		testTxRunner{db: db},
		catalog.NewRepository(db),
		clients.NewRepository(db),
		orders.NewRepository(db),
		calc,
		notifier,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, supplierID uuid.UUID, sale, wholesale string, available int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:             uuid.New(),
		SupplierID:     supplierID,
		Name:           "Product " + uuid.NewString()[:4],
		SalePrice:      decimal.RequireFromString(sale),
		WholesalePrice: decimal.RequireFromString(wholesale),
		AvailableQty:   available,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func testContact() clients.ContactInput {
	return clients.ContactInput{
		Name:    "Amine B",
		Phone:   "+212600000001",
		Address: "12 Rue des Orangers",
	}
}

func TestExecuteSplitsBySupplier(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	ctx := context.Background()

	supplierA := uuid.New()
	supplierB := uuid.New()
	prodA := seedProduct(t, db, supplierA, "10", "6", 20)
	prodB := seedProduct(t, db, supplierB, "30", "20", 20)

	order, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines: []LineInput{
			{ProductID: prodA.ID, Qty: 3},
			{ProductID: prodB.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(order.SubOrders) != 2 {
		t.Fatalf("expected 2 sub-orders, got %d", len(order.SubOrders))
	}
	if order.ConfirmationStatus != enums.OrderConfirmationStatusConfirmed {
		t.Fatalf("expected immediate confirmation, got %s", order.ConfirmationStatus)
	}
	// subtotal 60, two suppliers so delivery 15, platform 10% of 38 wholesale
	if !order.Subtotal.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("subtotal = %s, want 60", order.Subtotal)
	}
	if !order.DeliveryFee.Equal(decimal.RequireFromString("15.0")) {
		t.Fatalf("delivery fee = %s, want 15.0", order.DeliveryFee)
	}
	if !order.PlatformFee.Equal(decimal.RequireFromString("3.8")) {
		t.Fatalf("platform fee = %s, want 3.8", order.PlatformFee)
	}
	if !order.GrandTotal.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("grand total = %s, want 75", order.GrandTotal)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", prodA.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.AvailableQty != 17 || got.ReservedQty != 3 {
		t.Fatalf("reservation missing: %+v", got)
	}

	var client models.Client
	if err := db.First(&client, "phone = ?", "+212600000001").Error; err != nil {
		t.Fatalf("client not created: %v", err)
	}
}

func TestExecuteValidatesCartPrice(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	ctx := context.Background()

	product := seedProduct(t, db, uuid.New(), "10", "6", 20)

	current := decimal.RequireFromString("10.00")
	order, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines:  []LineInput{{ProductID: product.ID, Qty: 2, SalePrice: &current}},
	})
	if err != nil {
		t.Fatalf("execute with current price: %v", err)
	}
	if len(order.SubOrders) != 1 {
		t.Fatalf("expected 1 sub-order, got %d", len(order.SubOrders))
	}

	stale := decimal.RequireFromString("9.50")
	_, err = svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines:  []LineInput{{ProductID: product.ID, Qty: 1, SalePrice: &stale}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for stale cart price, got %v", err)
	}
}

func TestExecuteRollsBackOnStockFailure(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	ctx := context.Background()

	supplier := uuid.New()
	plenty := seedProduct(t, db, supplier, "10", "6", 20)
	scarce := seedProduct(t, db, supplier, "10", "6", 1)

	_, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines: []LineInput{
			{ProductID: plenty.ID, Qty: 2},
			{ProductID: scarce.ID, Qty: 5},
		},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("order persisted despite rollback")
	}

	var got models.Product
	if err := db.First(&got, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.AvailableQty != 20 || got.ReservedQty != 0 {
		t.Fatalf("stock leaked: %+v", got)
	}
}

func TestExecuteRequireConfirmation(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	ctx := context.Background()

	product := seedProduct(t, db, uuid.New(), "10", "6", 10)
	order, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client:              testContact(),
		Lines:               []LineInput{{ProductID: product.ID, Qty: 1}},
		RequireConfirmation: true,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if order.ConfirmationStatus != enums.OrderConfirmationStatusPending {
		t.Fatalf("expected pending confirmation, got %s", order.ConfirmationStatus)
	}
	if order.DeliveryFee.String() != "8" && order.DeliveryFee.String() != "8.0" {
		t.Fatalf("delivery fee = %s, want 8.0", order.DeliveryFee)
	}
}

func TestExecuteStoresNetUnitMargin(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	svc := newCheckoutService(t, db, nil)
	ctx := context.Background()

	product := seedProduct(t, db, uuid.New(), "10", "6", 10)
	order, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines:  []LineInput{{ProductID: product.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var lines []models.OrderLine
	if err := db.Where("sub_order_id = ?", order.SubOrders[0].ID).Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	// gross margin 4 less full platform fee 1.8 spread over 3 units
	if !lines[0].UnitMargin.Equal(decimal.RequireFromString("3.4")) {
		t.Fatalf("unit margin = %s, want 3.4", lines[0].UnitMargin)
	}
}

func TestExecuteNotifiesLowStock(t *testing.T) {
	t.Parallel()

	db := newCheckoutTestDB(t)
	notifier := &captureNotifier{}
	svc := newCheckoutService(t, db, notifier)
	ctx := context.Background()

	product := seedProduct(t, db, uuid.New(), "10", "6", 5)
	product.LowStockThreshold = 2
	if err := db.Save(product).Error; err != nil {
		t.Fatalf("update product: %v", err)
	}

	if _, err := svc.Execute(ctx, uuid.New(), CheckoutInput{
		Client: testContact(),
		Lines:  []LineInput{{ProductID: product.ID, Qty: 3}},
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(notifier.alerts) != 1 || notifier.alerts[0].Remaining != 2 {
		t.Fatalf("expected one low-stock alert with remaining 2, got %+v", notifier.alerts)
	}
}
