package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/port"
)

// Mock Directory
type mockDirectory struct {
	mu          sync.Mutex
	candidates  []domain.SupplierCandidate
	err         error
	findCalls   int
	requester   string
	registered  map[string]domain.NodeIdentity
	registerErr error
}

func newMockDirectory(candidates ...domain.SupplierCandidate) *mockDirectory {
	return &mockDirectory{candidates: candidates, registered: make(map[string]domain.NodeIdentity)}
}

func (m *mockDirectory) FindSuppliers(ctx context.Context, sku string, quantity int, requesterAddress string) ([]domain.SupplierCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	m.requester = requesterAddress
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

func (m *mockDirectory) Register(ctx context.Context, node domain.NodeIdentity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered[node.Name] = node
	return nil
}

// Mock PeerTransfer. Suppliers are in-process stores keyed by address; credits
// land in local.
type mockPeers struct {
	mu          sync.Mutex
	suppliers   map[string]port.InventoryStore
	local       port.InventoryStore
	debitErr    error
	creditErr   error
	debitCalls  []string
	creditCalls []domain.CreditRequest
}

func newMockPeers(local port.InventoryStore) *mockPeers {
	return &mockPeers{suppliers: make(map[string]port.InventoryStore), local: local}
}

func (m *mockPeers) DebitRemote(ctx context.Context, supplierAddress string, req domain.TransferRequest) (domain.DebitResult, error) {
	m.mu.Lock()
	m.debitCalls = append(m.debitCalls, supplierAddress)
	debitErr := m.debitErr
	store, ok := m.suppliers[supplierAddress]
	m.mu.Unlock()

	if debitErr != nil {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, debitErr
	}
	if !ok {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, fmt.Errorf("%w: %s", domain.ErrUnreachable, supplierAddress)
	}

	item, status, err := store.DecrementStock(ctx, req)
	if err != nil {
		return domain.DebitResult{Outcome: domain.DebitUnreachable}, err
	}
	if !status.Succeeded() {
		return domain.DebitResult{Outcome: domain.DebitInsufficient}, nil
	}
	return domain.DebitResult{Outcome: domain.DebitApplied, Remaining: item.Quantity}, nil
}

func (m *mockPeers) CreditLocal(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	m.mu.Lock()
	m.creditCalls = append(m.creditCalls, req)
	creditErr := m.creditErr
	m.mu.Unlock()

	if creditErr != nil {
		return domain.StockItem{}, &domain.LocalWriteError{SKU: req.SKU, Err: creditErr}
	}
	return m.local.IncrementStock(ctx, req)
}

// Mock OutcomeNotifier
type mockNotifier struct {
	mu       sync.Mutex
	received []domain.OutcomeNotification
	err      error
}

func (m *mockNotifier) NotifyOutcome(ctx context.Context, n domain.OutcomeNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, n)
	return m.err
}

// Mock Submitter
type mockSubmitter struct {
	mu   sync.Mutex
	jobs []replenishJob
	err  error
}

func (m *mockSubmitter) Submit(sku string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, replenishJob{SKU: sku, Quantity: quantity})
	return nil
}
