package peer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/adapter/storage"
	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type scriptedDebiter struct {
	mu      sync.Mutex
	results []domain.DebitResult
	errs    []error
	calls   int
	ids     []string
}

func (s *scriptedDebiter) Debit(ctx context.Context, address string, req domain.TransferRequest) (domain.DebitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	s.ids = append(s.ids, req.TransferID)
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], s.errs[i]
}

func (s *scriptedDebiter) Close() error { return nil }

type failingStore struct {
	*storage.MemoryAdapter
	failures int
	calls    int
}

func (f *failingStore) IncrementStock(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.StockItem{}, fmt.Errorf("%w: redis: connection reset", domain.ErrUnreachable)
	}
	return f.MemoryAdapter.IncrementStock(ctx, req)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond, Retryable: IsNetworkError}
}

var unreachable = domain.DebitResult{Outcome: domain.DebitUnreachable}

func TestClient_DebitRetriesOnceWithSameTransferID(t *testing.T) {
	remote := &scriptedDebiter{
		results: []domain.DebitResult{unreachable, {Outcome: domain.DebitApplied, Remaining: 30}},
		errs:    []error{fmt.Errorf("%w: timeout", domain.ErrUnreachable), nil},
	}
	client := NewClient(remote, storage.NewMemoryAdapter(), time.Second, fastPolicy(), zap.NewNop())

	result, err := client.DebitRemote(context.Background(), "dc-c:50051", domain.TransferRequest{TransferID: "t-1", SKU: "HW-101", Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, domain.DebitApplied, result.Outcome)
	assert.Equal(t, 2, remote.calls)
	assert.Equal(t, []string{"t-1", "t-1"}, remote.ids)
}

func TestClient_DebitGivesUpAfterRetry(t *testing.T) {
	remote := &scriptedDebiter{
		results: []domain.DebitResult{unreachable},
		errs:    []error{fmt.Errorf("%w: refused", domain.ErrUnreachable)},
	}
	client := NewClient(remote, storage.NewMemoryAdapter(), time.Second, fastPolicy(), zap.NewNop())

	result, err := client.DebitRemote(context.Background(), "dc-c:50051", domain.TransferRequest{SKU: "HW-101", Quantity: 20})
	assert.Equal(t, domain.DebitUnreachable, result.Outcome)
	assert.ErrorIs(t, err, domain.ErrUnreachable)
	assert.Equal(t, 2, remote.calls)
}

func TestClient_InsufficientIsNotRetried(t *testing.T) {
	remote := &scriptedDebiter{
		results: []domain.DebitResult{{Outcome: domain.DebitInsufficient}},
		errs:    []error{nil},
	}
	client := NewClient(remote, storage.NewMemoryAdapter(), time.Second, fastPolicy(), zap.NewNop())

	result, err := client.DebitRemote(context.Background(), "dc-c:50051", domain.TransferRequest{SKU: "HW-101", Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, domain.DebitInsufficient, result.Outcome)
	assert.Equal(t, 1, remote.calls)
}

func TestClient_RejectionIsNotRetried(t *testing.T) {
	remote := &scriptedDebiter{
		results: []domain.DebitResult{unreachable},
		errs:    []error{errors.New("debit rejected by dc-c: invalid argument")},
	}
	client := NewClient(remote, storage.NewMemoryAdapter(), time.Second, fastPolicy(), zap.NewNop())

	_, err := client.DebitRemote(context.Background(), "dc-c:50051", domain.TransferRequest{SKU: "HW-101", Quantity: 20})
	require.Error(t, err)
	assert.Equal(t, 1, remote.calls)
}

func creditRequest() domain.CreditRequest {
	return domain.CreditRequest{
		TransferRequest: domain.TransferRequest{TransferID: "t-1", SKU: "HW-101", Quantity: 20},
		Name:            "Hammer",
		Price:           decimal.NewFromInt(8),
	}
}

func TestClient_CreditLocalRetriesTransientStoreFailure(t *testing.T) {
	store := &failingStore{MemoryAdapter: storage.NewMemoryAdapter(), failures: 1}
	client := NewClient(&scriptedDebiter{}, store, time.Second, fastPolicy(), zap.NewNop())

	item, err := client.CreditLocal(context.Background(), creditRequest())
	require.NoError(t, err)
	assert.Equal(t, 20, item.Quantity)
	assert.Equal(t, 2, store.calls)
}

func TestClient_CreditLocalFailure(t *testing.T) {
	store := &failingStore{MemoryAdapter: storage.NewMemoryAdapter(), failures: 5}
	client := NewClient(&scriptedDebiter{}, store, time.Second, fastPolicy(), zap.NewNop())

	_, err := client.CreditLocal(context.Background(), creditRequest())
	assert.ErrorIs(t, err, domain.ErrLocalWrite)

	var lw *domain.LocalWriteError
	require.ErrorAs(t, err, &lw)
	assert.Equal(t, "HW-101", lw.SKU)
	assert.Equal(t, 2, store.calls)
}
