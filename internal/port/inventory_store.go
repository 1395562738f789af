package port

import (
	"context"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type InventoryStore interface {
	// GetItem returns domain.ErrItemNotFound when the SKU has no record
	GetItem(ctx context.Context, sku string) (domain.StockItem, error)

	// DecrementStock atomically debits quantity if enough is on hand.
	// A transferID that was already applied reports DecrementReplayed without debiting again.
	DecrementStock(ctx context.Context, req domain.TransferRequest) (domain.StockItem, domain.DecrementStatus, error)

	// IncrementStock atomically credits quantity, creating the record from req when absent.
	// A transferID that was already applied is not credited twice.
	IncrementStock(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error)

	// SetItem overwrites a record (seeding and tests)
	SetItem(ctx context.Context, item domain.StockItem) error
}
