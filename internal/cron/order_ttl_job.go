package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/logger"
	"go.uber.org/multierr"
)

const (
	expiryReason    = "pending confirmation window expired"
	expiryBatchSize = 100
)

type staleOrderReader interface {
	ListStalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, orderID uuid.UUID, reason string) error
}

type expiryNotifier interface {
	OrderExpired(ctx context.Context, orderID uuid.UUID, orderCode string)
}

// OrderTTLJobParams configure the pending order expiry job.
type OrderTTLJobParams struct {
	Logger   *logger.Logger
	Reader   staleOrderReader
	Orders   orderCanceller
	Notifier expiryNotifier
	TTL      time.Duration
}

// NewOrderTTLJob builds the job that cancels orders left unconfirmed past
// the configured TTL, releasing their stock reservations.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order canceller required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	return &orderTTLJob{
		logg:     params.Logger,
		reader:   params.Reader,
		orders:   params.Orders,
		notifier: params.Notifier,
		ttl:      params.TTL,
		now:      time.Now,
	}, nil
}

type orderTTLJob struct {
	logg     *logger.Logger
	reader   staleOrderReader
	orders   orderCanceller
	notifier expiryNotifier
	ttl      time.Duration
	now      func() time.Time
}

func (j *orderTTLJob) Name() string { return "pending-order-expiry" }

func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired := 0
	var errs error

	for {
		batch, err := j.reader.ListStalePendingOrders(ctx, cutoff, expiryBatchSize)
		if err != nil {
			return fmt.Errorf("query stale pending orders: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		progressed := 0
		for _, order := range batch {
			if err := j.orders.Cancel(ctx, order.ID, expiryReason); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.Code, err))
				continue
			}
			progressed++
			expired++
			if j.notifier != nil {
				j.notifier.OrderExpired(ctx, order.ID, order.Code)
			}
		}
		// Failed orders stay in the stale query, so a cycle with no
		// progress would refetch them forever.
		if progressed == 0 {
			break
		}
		if len(batch) < expiryBatchSize {
			break
		}
	}

	logCtx := j.logg.WithField(ctx, "expired", expired)
	j.logg.Info(logCtx, "pending order expiry loop complete")
	return errs
}
