package storage

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func seedRedis(t *testing.T, client *redis.Client, adapter *RedisAdapter, sku string, quantity int) {
	ctx := context.Background()
	client.Del(ctx, stockKeyPrefix+sku)
	require.NoError(t, adapter.SetItem(ctx, domain.StockItem{
		SKU:      sku,
		Name:     "Test item",
		Price:    decimal.RequireFromString("12.50"),
		Quantity: quantity,
	}))
}

func TestRedisDecrementStock_Success(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	seedRedis(t, client, adapter, "test-item", 10)
	client.Del(ctx, markerKey("debit", "redis-dec-1"))

	item, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{TransferID: "redis-dec-1", SKU: "test-item", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementApplied, status)
	assert.Equal(t, 7, item.Quantity)
	assert.True(t, item.Price.Equal(decimal.RequireFromString("12.50")))
}

func TestRedisDecrementStock_InsufficientStock(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	seedRedis(t, client, adapter, "test-item", 5)

	item, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{TransferID: "redis-dec-2", SKU: "test-item", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementInsufficient, status)
	assert.Equal(t, 5, item.Quantity)

	stored, err := adapter.GetItem(ctx, "test-item")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)
}

func TestRedisDecrementStock_KeyNotExists(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	client.Del(ctx, stockKeyPrefix+"nonexistent")

	_, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{TransferID: "redis-dec-3", SKU: "nonexistent", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementInsufficient, status)
}

func TestRedisDecrementStock_ReplayedTransferAppliedOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	seedRedis(t, client, adapter, "replay-item", 10)
	client.Del(ctx, markerKey("debit", "redis-replay"))

	req := domain.TransferRequest{TransferID: "redis-replay", SKU: "replay-item", Quantity: 4}
	_, status, err := adapter.DecrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementApplied, status)

	for i := 1; i < 2; i++ {
		_, status, err = adapter.DecrementStock(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, domain.DecrementReplayed, status)
	}

	item, err := adapter.GetItem(ctx, "replay-item")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
}

func TestRedisDecrementStock_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)

	initialStock := 20
	totalRequests := 50
	seedRedis(t, client, adapter, "concurrent-test", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, status, err := adapter.DecrementStock(ctx, domain.TransferRequest{SKU: "concurrent-test", Quantity: 1})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if status == domain.DecrementApplied {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	item, err := adapter.GetItem(ctx, "concurrent-test")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
}

func TestRedisIncrementStock_CreatesMissingItem(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	client.Del(ctx, stockKeyPrefix+"HW-101", markerKey("credit", "redis-inc-1"))

	item, err := adapter.IncrementStock(ctx, domain.CreditRequest{
		TransferRequest: domain.TransferRequest{TransferID: "redis-inc-1", SKU: "HW-101", Quantity: 20},
		Name:            "Hammer",
		Description:     "Steel claw hammer",
		Price:           decimal.NewFromInt(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 20, item.Quantity)
	assert.Equal(t, "Hammer", item.Name)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(8)))
}

func TestRedisIncrementStock_ExistingItem(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, time.Minute)
	seedRedis(t, client, adapter, "test-item", 5)

	item, err := adapter.IncrementStock(ctx, domain.CreditRequest{
		TransferRequest: domain.TransferRequest{SKU: "test-item", Quantity: 3},
		Name:            "ignored",
		Price:           decimal.NewFromInt(99),
	})
	require.NoError(t, err)
	assert.Equal(t, 8, item.Quantity)
	assert.Equal(t, "Test item", item.Name)
}

func TestNewRedisAdapter_TransferTTL(t *testing.T) {
	assert.Equal(t, DefaultTransferTTL, NewRedisAdapter(nil, 0).transferTTL)
	assert.Equal(t, MinTransferTTL, NewRedisAdapter(nil, 500*time.Millisecond).transferTTL)
	assert.Equal(t, time.Minute, NewRedisAdapter(nil, time.Minute).transferTTL)
}

func TestRedisDecrementStock_SubSecondTTLRetryDebitsOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client, 500*time.Millisecond)
	seedRedis(t, client, adapter, "short-ttl-item", 10)
	client.Del(ctx, markerKey("debit", "redis-short-ttl"))

	req := domain.TransferRequest{TransferID: "redis-short-ttl", SKU: "short-ttl-item", Quantity: 4}
	item, status, err := adapter.DecrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementApplied, status)
	assert.Equal(t, 6, item.Quantity)

	ttl, err := client.PTTL(ctx, markerKey("debit", "redis-short-ttl")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, status, err = adapter.DecrementStock(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.DecrementReplayed, status)

	item, err = adapter.GetItem(ctx, "short-ttl-item")
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)
}
