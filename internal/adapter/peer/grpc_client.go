package peer

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/core/domain"
)

// GRPCDebiter sends debit legs over the stockrpc service. Connections are
// created lazily and kept per supplier address.
type GRPCDebiter struct {
	mu       sync.Mutex
	conns    map[string]*grpc.ClientConn
	dialOpts []grpc.DialOption
}

func NewGRPCDebiter(opts ...grpc.DialOption) *GRPCDebiter {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	return &GRPCDebiter{
		conns:    make(map[string]*grpc.ClientConn),
		dialOpts: dialOpts,
	}
}

func (g *GRPCDebiter) Debit(ctx context.Context, address string, req domain.TransferRequest) (domain.DebitResult, error) {
	cc, err := g.conn(address)
	if err != nil {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, fmt.Errorf("%w: dial %s: %v", domain.ErrUnreachable, address, err)
	}

	resp, err := stockrpc.NewStockTransferClient(cc).Debit(ctx, &stockrpc.DebitRequest{
		TransferID: req.TransferID,
		SKU:        req.SKU,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, classifyRPCError(address, err)
	}

	return debitResult(address, resp)
}

func (g *GRPCDebiter) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var firstErr error
	for addr, cc := range g.conns {
		if err := cc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.conns, addr)
	}
	return firstErr
}

func (g *GRPCDebiter) conn(address string) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cc, ok := g.conns[address]; ok {
		return cc, nil
	}
	cc, err := grpc.NewClient(address, g.dialOpts...)
	if err != nil {
		return nil, err
	}
	g.conns[address] = cc
	return cc, nil
}

func classifyRPCError(address string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %v", domain.ErrUnreachable, address, err)
	default:
		return fmt.Errorf("debit rejected by %s: %w", address, err)
	}
}

func debitResult(address string, resp *stockrpc.DebitResponse) (domain.DebitResult, error) {
	switch resp.Status {
	case stockrpc.DebitStatusApplied:
		return domain.DebitResult{Outcome: domain.DebitApplied, Remaining: resp.Remaining}, nil
	case stockrpc.DebitStatusInsufficient:
		return domain.DebitResult{Outcome: domain.DebitInsufficient}, nil
	default:
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, fmt.Errorf("debit at %s: unexpected status %q", address, resp.Status)
	}
}
