package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSetNXOnlyFirstWriterWins(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	ok, err := client.SetNX(ctx, "sq:lock:cron", "owner-a", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected first SetNX to win")
	}

	ok, err = client.SetNX(ctx, "sq:lock:cron", "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected second SetNX to lose")
	}

	value, err := client.Get(ctx, "sq:lock:cron")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if value != "owner-a" {
		t.Fatalf("expected owner-a to hold the key, got %q", value)
	}

	if err := client.Del(ctx, "sq:lock:cron"); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, "sq:lock:cron"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestPublishForwardsToChannel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Publish(ctx, "souqline-events", `{"type":"stock.low"}`); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if len(mock.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(mock.published))
	}
	if mock.published[0].channel != "souqline-events" {
		t.Fatalf("unexpected channel %s", mock.published[0].channel)
	}
}

func TestLockKey(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("cron-worker"); got != "sq:lock:cron-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	if err := client.Publish(ctx, "ch", "msg"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.SetNX(ctx, "k", "v", 0); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

type mockCmdable struct {
	data      map[string]string
	published []publishedMessage
}

type publishedMessage struct {
	channel string
	payload string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Publish(ctx context.Context, channel string, payload any) *redis.IntCmd {
	m.published = append(m.published, publishedMessage{channel: channel, payload: fmt.Sprint(payload)})
	return redis.NewIntResult(1, nil)
}
