package port

import (
	"context"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type PeerTransfer interface {
	// DebitRemote asks the supplier to decrement-if-sufficient. The error is
	// non-nil only when the outcome is DebitUnreachable.
	DebitRemote(ctx context.Context, supplierAddress string, req domain.TransferRequest) (domain.DebitResult, error)

	// CreditLocal increments this node's store
	CreditLocal(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error)
}

// RemoteDebiter is one wire transport for the debit leg. It makes a single
// attempt; retries belong to the caller.
type RemoteDebiter interface {
	Debit(ctx context.Context, address string, req domain.TransferRequest) (domain.DebitResult, error)
	Close() error
}
