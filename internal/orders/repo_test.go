package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:orders_repo_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	for _, ddl := range []string{
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
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, vendorID uuid.UUID, code string, created time.Time, state enums.OrderState, confirmation enums.OrderConfirmationStatus) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:                 uuid.New(),
		Code:               code,
		VendorID:           vendorID,
		ClientID:           uuid.New(),
		ConfirmationStatus: confirmation,
		State:              state,
		Subtotal:           decimal.NewFromInt(100),
		DeliveryFee:        decimal.NewFromInt(7),
		PlatformFee:        decimal.NewFromInt(3),
		GrandTotal:         decimal.NewFromInt(110),
		CreatedAt:          created,
		UpdatedAt:          created,
	}
	require.NoError(t, db.Omit("SubOrders").Create(order).Error)
	return order
}

func seedSubOrder(t *testing.T, db *gorm.DB, orderID, supplierID uuid.UUID, code string, created time.Time, status enums.DeliveryStatus) *models.SubOrder {
	t.Helper()

	sub := &models.SubOrder{
		ID:         uuid.New(),
		Code:       code,
		OrderID:    orderID,
		SupplierID: supplierID,
		Total:      decimal.NewFromInt(50),
		Status:     status,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, db.Omit("Lines", "Trackings").Create(sub).Error)

	line := &models.OrderLine{
		ID:                 uuid.New(),
		SubOrderID:         sub.ID,
		ProductID:          uuid.New(),
		Name:               "Test Pack",
		Qty:                2,
		UnitSalePrice:      decimal.NewFromInt(25),
		UnitWholesalePrice: decimal.NewFromInt(18),
		UnitMargin:         decimal.NewFromInt(7),
	}
	require.NoError(t, db.Create(line).Error)
	return sub
}

func TestRepositoryGetVendorOrder_scopesByVendor(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	vendorID := uuid.New()
	now := time.Now().UTC()
	order := seedOrder(t, db, vendorID, "ORD-AAAA1111", now, enums.OrderStatePending, enums.OrderConfirmationStatusPending)
	seedSubOrder(t, db, order.ID, uuid.New(), "SUB-AAAA1111", now, enums.DeliveryStatusPending)

	got, err := repo.GetVendorOrder(context.Background(), order.ID, vendorID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-AAAA1111", got.Code)
	require.Len(t, got.SubOrders, 1)
	require.Len(t, got.SubOrders[0].Lines, 1)
	assert.Equal(t, "Test Pack", got.SubOrders[0].Lines[0].Name)

	_, err = repo.GetVendorOrder(context.Background(), order.ID, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListVendorOrders_paginationAndFilters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	vendorID := uuid.New()
	now := time.Now().UTC()
	seedOrder(t, db, vendorID, "ORD-OLD00001", now.Add(-2*time.Hour), enums.OrderStateDelivered, enums.OrderConfirmationStatusConfirmed)
	seedOrder(t, db, vendorID, "ORD-MID00001", now.Add(-time.Hour), enums.OrderStatePending, enums.OrderConfirmationStatusPending)
	seedOrder(t, db, vendorID, "ORD-NEW00001", now, enums.OrderStatePending, enums.OrderConfirmationStatusPending)
	seedOrder(t, db, uuid.New(), "ORD-OTHER001", now, enums.OrderStatePending, enums.OrderConfirmationStatusPending)

	page, cursor, err := repo.ListVendorOrders(context.Background(), vendorID, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "ORD-NEW00001", page[0].Code)
	assert.Equal(t, "ORD-MID00001", page[1].Code)
	require.NotEmpty(t, cursor)

	rest, next, err := repo.ListVendorOrders(context.Background(), vendorID, pagination.Params{Limit: 2, Cursor: cursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "ORD-OLD00001", rest[0].Code)
	assert.Empty(t, next)

	state := enums.OrderStateDelivered
	filtered, _, err := repo.ListVendorOrders(context.Background(), vendorID, pagination.Params{Limit: 10}, OrderFilters{State: &state})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "ORD-OLD00001", filtered[0].Code)
}

func TestRepositoryListSupplierSubOrders_statusFilter(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	supplierID := uuid.New()
	now := time.Now().UTC()
	order := seedOrder(t, db, uuid.New(), "ORD-SPLIT001", now, enums.OrderStateInProgress, enums.OrderConfirmationStatusConfirmed)
	seedSubOrder(t, db, order.ID, supplierID, "SUB-SHIP0001", now.Add(-time.Minute), enums.DeliveryStatusShipped)
	seedSubOrder(t, db, order.ID, supplierID, "SUB-PEND0001", now, enums.DeliveryStatusPending)
	seedSubOrder(t, db, order.ID, uuid.New(), "SUB-OTHER001", now, enums.DeliveryStatusPending)

	all, _, err := repo.ListSupplierSubOrders(context.Background(), supplierID, pagination.Params{Limit: 10}, SubOrderFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SUB-PEND0001", all[0].Code)
	require.Len(t, all[0].Lines, 1)

	status := enums.DeliveryStatusShipped
	shipped, _, err := repo.ListSupplierSubOrders(context.Background(), supplierID, pagination.Params{Limit: 10}, SubOrderFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, "SUB-SHIP0001", shipped[0].Code)
}

func TestRepositorySubOrderStatuses(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	order := seedOrder(t, db, uuid.New(), "ORD-STAT0001", now, enums.OrderStateInProgress, enums.OrderConfirmationStatusConfirmed)
	seedSubOrder(t, db, order.ID, uuid.New(), "SUB-STAT0001", now, enums.DeliveryStatusDelivered)
	seedSubOrder(t, db, order.ID, uuid.New(), "SUB-STAT0002", now, enums.DeliveryStatusCancelled)

	statuses, err := repo.SubOrderStatuses(context.Background(), order.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []enums.DeliveryStatus{enums.DeliveryStatusDelivered, enums.DeliveryStatusCancelled}, statuses)
}

func TestRepositoryListStalePendingOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	stale := seedOrder(t, db, uuid.New(), "ORD-STALE001", now.Add(-48*time.Hour), enums.OrderStatePending, enums.OrderConfirmationStatusPending)
	seedOrder(t, db, uuid.New(), "ORD-FRESH001", now, enums.OrderStatePending, enums.OrderConfirmationStatusPending)
	seedOrder(t, db, uuid.New(), "ORD-DONE0001", now.Add(-48*time.Hour), enums.OrderStateDelivered, enums.OrderConfirmationStatusConfirmed)

	found, err := repo.ListStalePendingOrders(context.Background(), now.Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestRepositoryTrackingEventsAppend(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()
	order := seedOrder(t, db, uuid.New(), "ORD-TRACK001", now, enums.OrderStateInProgress, enums.OrderConfirmationStatusConfirmed)
	sub := seedSubOrder(t, db, order.ID, uuid.New(), "SUB-TRACK001", now, enums.DeliveryStatusProcessing)

	event := &models.TrackingEvent{
		ID:          uuid.New(),
		SubOrderID:  sub.ID,
		OldStatus:   enums.DeliveryStatusPending,
		NewStatus:   enums.DeliveryStatusProcessing,
		Description: "picked up by supplier",
	}
	require.NoError(t, repo.CreateTracking(context.Background(), event))

	got, err := repo.GetSubOrder(context.Background(), sub.ID)
	require.NoError(t, err)
	require.Len(t, got.Trackings, 1)
	assert.Equal(t, enums.DeliveryStatusProcessing, got.Trackings[0].NewStatus)
}
