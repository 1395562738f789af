package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

var (
	ErrQueueFull        = errors.New("replenishment queue full")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

type Replenisher interface {
	Replenish(ctx context.Context, sku string, quantity int) (domain.ReplenishResult, error)
}

type replenishJob struct {
	SKU      string
	Quantity int
}

// Dispatcher runs replenishments, at most one per SKU at a time. Synchronous
// requests go through Replenish; shortage-triggered ones are queued with
// Submit and drained by Run workers.
type Dispatcher struct {
	replenisher Replenisher
	queue       chan replenishJob
	logger      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool
}

func NewDispatcher(replenisher Replenisher, queueSize int, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		replenisher: replenisher,
		queue:       make(chan replenishJob, queueSize),
		logger:      logger,
		inFlight:    make(map[string]struct{}),
	}
}

func (d *Dispatcher) Replenish(ctx context.Context, sku string, quantity int) (domain.ReplenishResult, error) {
	if err := d.acquire(sku); err != nil {
		return domain.ReplenishResult{SKU: sku, Quantity: quantity, State: domain.StateAborted}, err
	}
	defer d.release(sku)

	return d.replenisher.Replenish(ctx, sku, quantity)
}

func (d *Dispatcher) Submit(sku string, quantity int) error {
	if err := (domain.TransferRequest{SKU: sku, Quantity: quantity}).Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	if _, busy := d.inFlight[sku]; busy {
		return domain.ErrDuplicateRequest
	}

	select {
	case d.queue <- replenishJob{SKU: sku, Quantity: quantity}:
		d.inFlight[sku] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the queue until Close is called.
func (d *Dispatcher) Run(ctx context.Context, id int) {
	for job := range d.queue {
		result, err := d.replenisher.Replenish(ctx, job.SKU, job.Quantity)
		if err != nil {
			d.logger.Warn("queued replenishment failed",
				zap.Int("worker", id),
				zap.String("sku", job.SKU),
				zap.Int("quantity", job.Quantity),
				zap.Error(err),
			)
		} else {
			d.logger.Info("queued replenishment completed",
				zap.Int("worker", id),
				zap.String("sku", job.SKU),
				zap.String("transfer_id", result.TransferID),
				zap.String("supplier", result.Supplier.Name),
			)
		}
		d.release(job.SKU)
	}
}

func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) acquire(sku string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, busy := d.inFlight[sku]; busy {
		return domain.ErrDuplicateRequest
	}
	d.inFlight[sku] = struct{}{}
	return nil
}

func (d *Dispatcher) release(sku string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.inFlight, sku)
}
