package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

const (
	stockKeyPrefix     = "stock:"
	transferKeyPrefix  = "transfer:"
	DefaultTransferTTL = 24 * time.Hour
	MinTransferTTL     = time.Second
)

// Script results for the first element of the decrement reply.
const (
	scriptInsufficient = 0
	scriptApplied      = 1
	scriptReplayed     = 2
)

// KEYS[1] stock hash, KEYS[2] transfer marker; ARGV[1] quantity, ARGV[2] marker ttl ms.
// Returns {status, quantity on hand}. The marker is written before the stock
// changes: Redis does not roll back a script that fails halfway.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local marker = KEYS[2]
local quantity = tonumber(ARGV[1])

if redis.call('EXISTS', marker) == 1 then
	return {2, tonumber(redis.call('HGET', key, 'quantity') or '0')}
end

local current = redis.call('HGET', key, 'quantity')
if not current then
	return {0, 0}
end

current = tonumber(current)
if current >= quantity then
	redis.call('SET', marker, 1, 'PX', ARGV[2])
	local remaining = redis.call('HINCRBY', key, 'quantity', -quantity)
	return {1, remaining}
end

return {0, current}
`)

// KEYS[1] stock hash, KEYS[2] transfer marker;
// ARGV: quantity, sku, name, description, price, marker ttl ms.
var incrementStockScript = redis.NewScript(`
local key = KEYS[1]
local marker = KEYS[2]

if redis.call('EXISTS', marker) == 1 then
	return tonumber(redis.call('HGET', key, 'quantity') or '0')
end

redis.call('SET', marker, 1, 'PX', ARGV[6])

if redis.call('EXISTS', key) == 0 then
	redis.call('HSET', key, 'sku', ARGV[2], 'name', ARGV[3], 'description', ARGV[4], 'price', ARGV[5], 'quantity', 0)
end

return redis.call('HINCRBY', key, 'quantity', tonumber(ARGV[1]))
`)

type RedisAdapter struct {
	client      *redis.Client
	transferTTL time.Duration
}

// NewRedisAdapter keeps transfer markers for transferTTL. Zero selects
// DefaultTransferTTL; anything shorter than MinTransferTTL is raised to it.
func NewRedisAdapter(client *redis.Client, transferTTL time.Duration) *RedisAdapter {
	switch {
	case transferTTL <= 0:
		transferTTL = DefaultTransferTTL
	case transferTTL < MinTransferTTL:
		transferTTL = MinTransferTTL
	}
	return &RedisAdapter{client: client, transferTTL: transferTTL}
}

func (r *RedisAdapter) GetItem(ctx context.Context, sku string) (domain.StockItem, error) {
	fields, err := r.client.HGetAll(ctx, stockKeyPrefix+sku).Result()
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("hgetall %s: %w", sku, err)
	}
	if len(fields) == 0 {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	return itemFromHash(sku, fields)
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, req domain.TransferRequest) (domain.StockItem, domain.DecrementStatus, error) {
	keys := []string{stockKeyPrefix + req.SKU, markerKey("debit", transferKey(req.TransferID))}

	result, err := decrementStockScript.Run(ctx, r.client, keys, req.Quantity, r.ttlMillis()).Int64Slice()
	if err != nil {
		return domain.StockItem{}, domain.DecrementInsufficient, err
	}
	if len(result) != 2 {
		return domain.StockItem{}, domain.DecrementInsufficient, fmt.Errorf("decrement script returned %d values", len(result))
	}

	var status domain.DecrementStatus
	switch result[0] {
	case scriptApplied:
		status = domain.DecrementApplied
	case scriptReplayed:
		status = domain.DecrementReplayed
	default:
		return domain.StockItem{SKU: req.SKU, Quantity: int(result[1])}, domain.DecrementInsufficient, nil
	}

	item, err := r.GetItem(ctx, req.SKU)
	if err != nil {
		return domain.StockItem{SKU: req.SKU, Quantity: int(result[1])}, status, nil
	}
	return item, status, nil
}

func (r *RedisAdapter) IncrementStock(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	keys := []string{stockKeyPrefix + req.SKU, markerKey("credit", transferKey(req.TransferID))}
	args := []interface{}{req.Quantity, req.SKU, req.Name, req.Description, req.Price.String(), r.ttlMillis()}

	if err := incrementStockScript.Run(ctx, r.client, keys, args...).Err(); err != nil {
		return domain.StockItem{}, err
	}

	return r.GetItem(ctx, req.SKU)
}

func (r *RedisAdapter) SetItem(ctx context.Context, item domain.StockItem) error {
	return r.client.HSet(ctx, stockKeyPrefix+item.SKU,
		"sku", item.SKU,
		"name", item.Name,
		"description", item.Description,
		"price", item.Price.String(),
		"quantity", item.Quantity,
	).Err()
}

func (r *RedisAdapter) ttlMillis() int64 {
	return r.transferTTL.Milliseconds()
}

// markerKey scopes the transfer id by direction so a node that both supplies
// and receives the same transfer (single shared Redis in tests) keeps both.
func markerKey(direction, transferID string) string {
	return transferKeyPrefix + direction + ":" + transferID
}

// transferKey gives legs without an id a unique one, so they are never
// mistaken for a replay of each other.
func transferKey(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func itemFromHash(sku string, fields map[string]string) (domain.StockItem, error) {
	quantity, err := strconv.Atoi(fields["quantity"])
	if err != nil {
		return domain.StockItem{}, fmt.Errorf("parse quantity of %s: %w", sku, err)
	}

	price := decimal.Zero
	if raw := fields["price"]; raw != "" {
		price, err = decimal.NewFromString(raw)
		if err != nil {
			return domain.StockItem{}, fmt.Errorf("parse price of %s: %w", sku, err)
		}
	}

	return domain.StockItem{
		SKU:         sku,
		Name:        fields["name"],
		Description: fields["description"],
		Price:       price,
		Quantity:    quantity,
	}, nil
}
