package port

import (
	"context"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type Directory interface {
	// FindSuppliers lists nodes holding at least quantity of sku, excluding the requester
	FindSuppliers(ctx context.Context, sku string, quantity int, requesterAddress string) ([]domain.SupplierCandidate, error)

	// Register announces this node; repeating it with the same name is harmless
	Register(ctx context.Context, node domain.NodeIdentity) error
}

type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, n domain.OutcomeNotification) error
}
