package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/enums"
	"github.com/souqline/souqline-backend/pkg/pagination"
)

// OrderFilters narrows vendor order listings.
type OrderFilters struct {
	State              *enums.OrderState
	ConfirmationStatus *enums.OrderConfirmationStatus
}

// SubOrderFilters narrows supplier sub-order listings.
type SubOrderFilters struct {
	Status *enums.DeliveryStatus
}

// Repository manages persistence for orders, sub-orders and tracking history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetVendorOrder(ctx context.Context, id, vendorID uuid.UUID) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error
	GetSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error)
	SaveSubOrder(ctx context.Context, sub *models.SubOrder) error
	SubOrderStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.DeliveryStatus, error)
	SetOrderState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error
	SetConfirmationStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderConfirmationStatus) error
	CreateTracking(ctx context.Context, event *models.TrackingEvent) error
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, string, error)
	ListSupplierSubOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params, filters SubOrderFilters) ([]models.SubOrder, string, error)
	ListStalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("SubOrders.Lines").
		Preload("SubOrders.Trackings").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetVendorOrder(ctx context.Context, id, vendorID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("SubOrders.Lines").
		Preload("SubOrders.Trackings").
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SaveOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("SubOrders").Save(order).Error
}

func (r *repository) GetSubOrder(ctx context.Context, id uuid.UUID) (*models.SubOrder, error) {
	var sub models.SubOrder
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Trackings").
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) SaveSubOrder(ctx context.Context, sub *models.SubOrder) error {
	return r.db.WithContext(ctx).Omit("Lines", "Trackings").Save(sub).Error
}

func (r *repository) SubOrderStatuses(ctx context.Context, orderID uuid.UUID) ([]enums.DeliveryStatus, error) {
	var statuses []enums.DeliveryStatus
	err := r.db.WithContext(ctx).
		Model(&models.SubOrder{}).
		Where("order_id = ?", orderID).
		Pluck("status", &statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *repository) SetOrderState(ctx context.Context, orderID uuid.UUID, state enums.OrderState) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"state": state, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) SetConfirmationStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderConfirmationStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"confirmation_status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) CreateTracking(ctx context.Context, event *models.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, params pagination.Params, filters OrderFilters) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Preload("SubOrders").
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if filters.State != nil {
		query = query.Where("state = ?", *filters.State)
	}
	if filters.ConfirmationStatus != nil {
		query = query.Where("confirmation_status = ?", *filters.ConfirmationStatus)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(orders) > limit {
		orders = orders[:limit]
		last := orders[len(orders)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return orders, next, nil
}

func (r *repository) ListSupplierSubOrders(ctx context.Context, supplierID uuid.UUID, params pagination.Params, filters SubOrderFilters) ([]models.SubOrder, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var subs []models.SubOrder
	if err := query.Find(&subs).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(subs) > limit {
		subs = subs[:limit]
		last := subs[len(subs)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return subs, next, nil
}

// ListStalePendingOrders returns confirmation-pending orders created before
// the cutoff, oldest first. Used by the expiry cron.
func (r *repository) ListStalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("SubOrders").
		Preload("SubOrders.Lines").
		Where("confirmation_status = ? AND created_at < ?", enums.OrderConfirmationStatusPending, olderThan).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
