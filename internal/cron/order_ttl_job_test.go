package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/souqline/souqline-backend/pkg/db/models"
	"github.com/souqline/souqline-backend/pkg/logger"
)

type fakeStaleReader struct {
	cutoff  time.Time
	pending []models.Order
	calls   int
}

func (f *fakeStaleReader) ListStalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	f.calls++
	f.cutoff = olderThan
	out := make([]models.Order, 0, len(f.pending))
	for _, order := range f.pending {
		out = append(out, order)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCanceller struct {
	cancelled []uuid.UUID
	failFor   map[uuid.UUID]error
}

func (f *fakeCanceller) Cancel(ctx context.Context, orderID uuid.UUID, reason string) error {
	if err, ok := f.failFor[orderID]; ok {
		return err
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

type fakeExpiryNotifier struct {
	codes []string
}

func (f *fakeExpiryNotifier) OrderExpired(ctx context.Context, orderID uuid.UUID, orderCode string) {
	f.codes = append(f.codes, orderCode)
}

// drainReader empties its pending list as orders get cancelled, matching how
// cancelled orders drop out of the confirmation-pending query.
type drainReader struct {
	canceller *fakeCanceller
	pending   []models.Order
}

func (d *drainReader) ListStalePendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error) {
	done := make(map[uuid.UUID]bool, len(d.canceller.cancelled))
	for _, id := range d.canceller.cancelled {
		done[id] = true
	}
	var out []models.Order
	for _, order := range d.pending {
		if done[order.ID] {
			continue
		}
		out = append(out, order)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

func TestOrderTTLJobExpiresStaleOrders(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first := models.Order{ID: uuid.New(), Code: "ORD-AAAA1111"}
	second := models.Order{ID: uuid.New(), Code: "ORD-BBBB2222"}

	canceller := &fakeCanceller{}
	reader := &drainReader{canceller: canceller, pending: []models.Order{first, second}}
	notifier := &fakeExpiryNotifier{}

	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger:   testLogger(),
		Reader:   reader,
		Orders:   canceller,
		Notifier: notifier,
		TTL:      240 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job.(*orderTTLJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(canceller.cancelled) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(canceller.cancelled))
	}
	if len(notifier.codes) != 2 || notifier.codes[0] != "ORD-AAAA1111" {
		t.Fatalf("unexpected notifications %v", notifier.codes)
	}
}

func TestOrderTTLJobUsesConfiguredCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := &fakeStaleReader{}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: testLogger(),
		Reader: reader,
		Orders: &fakeCanceller{},
		TTL:    240 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}
	job.(*orderTTLJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := now.Add(-240 * time.Hour)
	if !reader.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, reader.cutoff)
	}
}

func TestOrderTTLJobContinuesPastFailures(t *testing.T) {
	broken := models.Order{ID: uuid.New(), Code: "ORD-BROKEN00"}
	healthy := models.Order{ID: uuid.New(), Code: "ORD-HEALTHY0"}

	canceller := &fakeCanceller{
		failFor: map[uuid.UUID]error{broken.ID: errors.New("db unavailable")},
	}
	reader := &drainReader{canceller: canceller, pending: []models.Order{broken, healthy}}

	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: testLogger(),
		Reader: reader,
		Orders: canceller,
		TTL:    time.Hour,
	})
	if err != nil {
		t.Fatalf("NewOrderTTLJob: %v", err)
	}

	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected aggregated error for the broken order")
	}
	if len(canceller.cancelled) != 1 || canceller.cancelled[0] != healthy.ID {
		t.Fatalf("expected healthy order cancelled despite failure, got %v", canceller.cancelled)
	}
}

func TestNewOrderTTLJobValidation(t *testing.T) {
	base := OrderTTLJobParams{
		Logger: testLogger(),
		Reader: &fakeStaleReader{},
		Orders: &fakeCanceller{},
		TTL:    time.Hour,
	}

	missingReader := base
	missingReader.Reader = nil
	if _, err := NewOrderTTLJob(missingReader); err == nil {
		t.Fatal("expected error for missing reader")
	}

	badTTL := base
	badTTL.TTL = 0
	if _, err := NewOrderTTLJob(badTTL); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}
