package storage

import (
	"context"
	"sync"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

// MemoryAdapter keeps stock in process memory. One mutex serialises every
// mutation, which is what makes DecrementStock's check-then-write atomic.
type MemoryAdapter struct {
	mu      sync.Mutex
	items   map[string]domain.StockItem
	applied map[string]struct{}
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items:   make(map[string]domain.StockItem),
		applied: make(map[string]struct{}),
	}
}

func (m *MemoryAdapter) GetItem(ctx context.Context, sku string) (domain.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[sku]
	if !ok {
		return domain.StockItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (m *MemoryAdapter) DecrementStock(ctx context.Context, req domain.TransferRequest) (domain.StockItem, domain.DecrementStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[req.SKU]
	if _, done := m.applied[markerKey("debit", req.TransferID)]; done {
		return item, domain.DecrementReplayed, nil
	}
	if !ok {
		return domain.StockItem{SKU: req.SKU}, domain.DecrementInsufficient, nil
	}
	if item.Quantity < req.Quantity {
		return item, domain.DecrementInsufficient, nil
	}

	item.Quantity -= req.Quantity
	m.items[req.SKU] = item
	m.markLocked("debit", req.TransferID)
	return item, domain.DecrementApplied, nil
}

func (m *MemoryAdapter) IncrementStock(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, done := m.applied[markerKey("credit", req.TransferID)]; done {
		return m.items[req.SKU], nil
	}

	item, ok := m.items[req.SKU]
	if !ok {
		item = req.Item()
	} else {
		item.Quantity += req.Quantity
	}
	m.items[req.SKU] = item
	m.markLocked("credit", req.TransferID)
	return item, nil
}

func (m *MemoryAdapter) SetItem(ctx context.Context, item domain.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.SKU] = item
	return nil
}

func (m *MemoryAdapter) markLocked(direction, transferID string) {
	if transferID == "" {
		return
	}
	m.applied[markerKey(direction, transferID)] = struct{}{}
}
