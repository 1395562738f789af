package peer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/port"
)

// Client is the PeerTransfer used by the coordinator: remote debits go over
// the configured transport, credits land in the local store. Both legs share
// the per-attempt timeout and retry policy.
type Client struct {
	remote  port.RemoteDebiter
	store   port.InventoryStore
	timeout time.Duration
	policy  RetryPolicy
	logger  *zap.Logger
}

func NewClient(remote port.RemoteDebiter, store port.InventoryStore, timeout time.Duration, policy RetryPolicy, logger *zap.Logger) *Client {
	return &Client{
		remote:  remote,
		store:   store,
		timeout: timeout,
		policy:  policy,
		logger:  logger,
	}
}

func (c *Client) DebitRemote(ctx context.Context, supplierAddress string, req domain.TransferRequest) (domain.DebitResult, error) {
	var result domain.DebitResult
	attempt := 0

	err := c.policy.Do(ctx, c.timeout, func(ctx context.Context) error {
		attempt++
		r, err := c.remote.Debit(ctx, supplierAddress, req)
		if err != nil {
			c.logger.Warn("remote debit attempt failed",
				zap.String("transfer_id", req.TransferID),
				zap.String("supplier", supplierAddress),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, err
	}
	return result, nil
}

func (c *Client) CreditLocal(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	var item domain.StockItem

	err := c.policy.Do(ctx, c.timeout, func(ctx context.Context) error {
		var err error
		item, err = c.store.IncrementStock(ctx, req)
		return err
	})
	if err != nil {
		return domain.StockItem{}, &domain.LocalWriteError{SKU: req.SKU, Err: err}
	}
	return item, nil
}

func (c *Client) Close() error {
	return c.remote.Close()
}
