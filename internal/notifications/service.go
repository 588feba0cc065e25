package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/souqline/souqline-backend/internal/stock"
	"github.com/souqline/souqline-backend/pkg/config"
	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

// Event type labels carried on the wire.
const (
	EventLowStock       = "stock.low"
	EventReturnPenalty  = "wallet.return_penalty"
	EventOrderExpired   = "order.expired"
	EventWithdrawalMove = "withdrawal.decided"
)

// Service publishes domain events for downstream consumers. Every method is
// fire-and-forget: a broker outage must never fail the business operation
// that triggered the event, so failures are logged and swallowed.
type Service interface {
	LowStock(ctx context.Context, alerts []stock.LowStockAlert)
	PenaltyApplied(ctx context.Context, subOrderCode string, amount decimal.Decimal)
	OrderExpired(ctx context.Context, orderID uuid.UUID, orderCode string)
	WithdrawalDecided(ctx context.Context, requestID uuid.UUID, status string)
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type service struct {
	pub     publisher
	channel string
	logg    zerolog.Logger
}

// NewService wires the event sink against the configured channel.
func NewService(pub publisher, cfg config.NotificationConfig, logg zerolog.Logger) (Service, error) {
	if pub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications publisher required")
	}
	if cfg.Channel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification channel required")
	}
	return &service{pub: pub, channel: cfg.Channel, logg: logg}, nil
}

type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type lowStockPayload struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Product   string     `json:"product"`
	Remaining int        `json:"remaining"`
}

type penaltyPayload struct {
	SubOrderCode string          `json:"sub_order_code"`
	Amount       decimal.Decimal `json:"amount"`
}

type orderExpiredPayload struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderCode string    `json:"order_code"`
}

type withdrawalPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	Status    string    `json:"status"`
}

func (s *service) LowStock(ctx context.Context, alerts []stock.LowStockAlert) {
	for _, alert := range alerts {
		s.emit(ctx, EventLowStock, lowStockPayload{
			ProductID: alert.ProductID,
			VariantID: alert.VariantID,
			Product:   alert.Product,
			Remaining: alert.Remaining,
		})
	}
}

func (s *service) PenaltyApplied(ctx context.Context, subOrderCode string, amount decimal.Decimal) {
	s.emit(ctx, EventReturnPenalty, penaltyPayload{SubOrderCode: subOrderCode, Amount: amount})
}

func (s *service) OrderExpired(ctx context.Context, orderID uuid.UUID, orderCode string) {
	s.emit(ctx, EventOrderExpired, orderExpiredPayload{OrderID: orderID, OrderCode: orderCode})
}

func (s *service) WithdrawalDecided(ctx context.Context, requestID uuid.UUID, status string) {
	s.emit(ctx, EventWithdrawalMove, withdrawalPayload{RequestID: requestID, Status: status})
}

func (s *service) emit(ctx context.Context, eventType string, data any) {
	body, err := json.Marshal(envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		s.logg.Error().Err(err).Str("event", eventType).Msg("encode notification event")
		return
	}
	if err := s.pub.Publish(ctx, s.channel, string(body)); err != nil {
		s.logg.Error().Err(err).Str("event", eventType).Str("channel", s.channel).Msg("publish notification event")
	}
}
