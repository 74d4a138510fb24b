package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestIncrWithTTLExpiresOnFirstHit(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	for i := 1; i <= 3; i++ {
		count, err := client.IncrWithTTL(ctx, "rl:ip:orders:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("incr %d: %v", i, err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d got %d", i, count)
		}
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected a single expire, got %d", len(mock.expireCalls))
	}
	if mock.expireCalls[0].ttl != time.Minute {
		t.Fatalf("unexpected ttl %s", mock.expireCalls[0].ttl)
	}
}

func TestIncrWithTTLRepairsMissingExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	mock.incr["orphan"] = 4
	client := &Client{store: mock}

	count, err := client.IncrWithTTL(ctx, "orphan", time.Second)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 got %d", count)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].key != "orphan" {
		t.Fatalf("expected expiry to be restored, calls=%v", mock.expireCalls)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.IdempotencyKey("stripe-event", "evt_1")

	ok, err := client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to be rejected, ok=%v err=%v", ok, err)
	}
	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := client.IncrWithTTL(context.Background(), "k", time.Second); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("scope", "id"); got != "sf:idempotency:scope:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.LockKey("cron-worker:dev"); got != "sf:lock:cron-worker:dev" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.IdempotencyKey(" ", "id"); got != "sf:idempotency:id" {
		t.Fatalf("blank parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@localhost:6380/2",
		DB:          5,
		PoolSize:    20,
		DialTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.Password != "secret" {
		t.Fatalf("url not applied: addr=%s", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("url db should win, got %d", opts.DB)
	}
	if opts.PoolSize != 20 || opts.DialTimeout != 3*time.Second {
		t.Fatalf("config defaults not filled: pool=%d dial=%s", opts.PoolSize, opts.DialTimeout)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 1})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 1 {
		t.Fatalf("unexpected address options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	ttls        map[string]time.Duration
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) TTL(_ context.Context, key string) *redis.DurationCmd {
	if _, ok := m.incr[key]; !ok {
		return redis.NewDurationResult(-2, nil)
	}
	if ttl, ok := m.ttls[key]; ok {
		return redis.NewDurationResult(ttl, nil)
	}
	return redis.NewDurationResult(-1, nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
