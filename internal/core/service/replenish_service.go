package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/port"
)

type ReplenishConfig struct {
	Self          domain.NodeIdentity
	NotifyTimeout time.Duration
}

// ReplenishService pulls stock for one SKU from the cheapest peer that has it.
// A saga runs Discovering, Selecting, DebitingSupplier, CreditingSelf and
// Notifying in order; any step before CreditingSelf can abort it cleanly.
type ReplenishService struct {
	cfg       ReplenishConfig
	directory port.Directory
	peers     port.PeerTransfer
	notifiers []port.OutcomeNotifier
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewReplenishService(cfg ReplenishConfig, directory port.Directory, peers port.PeerTransfer, logger *zap.Logger, tracer trace.Tracer, notifiers ...port.OutcomeNotifier) *ReplenishService {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 2 * time.Second
	}
	return &ReplenishService{
		cfg:       cfg,
		directory: directory,
		peers:     peers,
		notifiers: notifiers,
		logger:    logger,
		tracer:    tracer,
		now:       time.Now,
	}
}

type saga struct {
	result domain.ReplenishResult
	span   trace.Span
	logger *zap.Logger
}

func (s *saga) enter(state domain.SagaState) {
	s.result.State = state
	s.span.AddEvent(string(state))
	s.logger.Info("replenishment state", zap.String("state", string(state)))
}

func (s *saga) abort(err error) (domain.ReplenishResult, error) {
	s.result.State = domain.StateAborted
	s.span.AddEvent(string(domain.StateAborted))
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.logger.Warn("replenishment aborted", zap.Error(err))
	return s.result, err
}

func (r *ReplenishService) Replenish(ctx context.Context, sku string, quantity int) (domain.ReplenishResult, error) {
	req := domain.TransferRequest{TransferID: uuid.NewString(), SKU: sku, Quantity: quantity}

	ctx, span := r.tracer.Start(ctx, "replenish")
	defer span.End()
	span.SetAttributes(
		attribute.String("transfer.id", req.TransferID),
		attribute.String("stock.sku", sku),
		attribute.Int("stock.quantity", quantity),
	)

	s := &saga{
		result: domain.ReplenishResult{TransferID: req.TransferID, SKU: sku, Quantity: quantity},
		span:   span,
		logger: r.logger.With(
			zap.String("transfer_id", req.TransferID),
			zap.String("sku", sku),
			zap.Int("quantity", quantity),
		),
	}

	if err := req.Validate(); err != nil {
		return s.abort(err)
	}

	s.enter(domain.StateDiscovering)
	candidates, err := r.directory.FindSuppliers(ctx, sku, quantity, r.cfg.Self.Address)
	if err != nil {
		if !errors.Is(err, domain.ErrDirectoryUnavailable) {
			err = &domain.DirectoryUnavailableError{Op: "find suppliers", Err: err}
		}
		return s.abort(err)
	}
	span.SetAttributes(attribute.Int("replenish.candidates", len(candidates)))

	s.enter(domain.StateSelecting)
	supplier, err := SelectSupplier(candidates)
	if err != nil {
		return s.abort(err)
	}
	s.result.Supplier = supplier.Node()
	s.result.UnitPrice = supplier.Price
	s.result.TotalPrice = supplier.Price.Mul(decimal.NewFromInt(int64(quantity)))
	span.SetAttributes(
		attribute.String("supplier.name", supplier.NodeName),
		attribute.String("supplier.address", supplier.Address),
		attribute.String("supplier.price", supplier.Price.String()),
	)
	s.logger = s.logger.With(zap.String("supplier", supplier.NodeName), zap.String("supplier_address", supplier.Address))

	// From here on the saga must finish whatever the caller does with ctx.
	ctx = context.WithoutCancel(ctx)

	s.enter(domain.StateDebitingSupplier)
	debit, err := r.peers.DebitRemote(ctx, supplier.Address, req)
	switch {
	case err == nil && debit.Outcome == domain.DebitApplied:
	case err == nil && debit.Outcome == domain.DebitInsufficient:
		return s.abort(&domain.TransferFailedError{SKU: sku, Quantity: quantity, SupplierAddress: supplier.Address, Err: domain.ErrInsufficientStock})
	default:
		if err == nil {
			err = fmt.Errorf("%w: debit outcome %s", domain.ErrUnreachable, debit.Outcome)
		}
		return s.abort(&domain.TransferFailedError{SKU: sku, Quantity: quantity, SupplierAddress: supplier.Address, Err: err})
	}

	s.enter(domain.StateCreditingSelf)
	credit := domain.CreditRequest{
		TransferRequest: req,
		Name:            productName(supplier),
		Description:     productDescription(supplier),
		Price:           supplier.Price,
	}
	if _, err := r.peers.CreditLocal(ctx, credit); err != nil {
		partial := &domain.PartialTransferError{
			TransferID:      req.TransferID,
			SKU:             sku,
			Quantity:        quantity,
			SupplierName:    supplier.NodeName,
			SupplierAddress: supplier.Address,
			OccurredAt:      r.now().UTC(),
			Err:             err,
		}
		s.logger.Error("stock debited at supplier but not credited locally",
			zap.Time("occurred_at", partial.OccurredAt),
			zap.Error(err),
		)
		return s.abort(partial)
	}

	s.enter(domain.StateNotifying)
	r.notify(ctx, s, domain.OutcomeNotification{
		TransferID:  req.TransferID,
		SKU:         sku,
		Quantity:    quantity,
		Origin:      supplier.Node(),
		Destination: r.cfg.Self,
		UnitPrice:   s.result.UnitPrice,
		TotalPrice:  s.result.TotalPrice,
		Status:      domain.TransferStatusCompleted,
		CompletedAt: r.now().UTC(),
	})

	s.enter(domain.StateCompleted)
	span.SetStatus(codes.Ok, "replenished")
	return s.result, nil
}

// notify is best effort: the transfer already happened, so a failed report
// is logged and the saga carries on.
func (r *ReplenishService) notify(ctx context.Context, s *saga, n domain.OutcomeNotification) {
	for _, notifier := range r.notifiers {
		nctx, cancel := context.WithTimeout(ctx, r.cfg.NotifyTimeout)
		err := notifier.NotifyOutcome(nctx, n)
		cancel()
		if err != nil {
			s.span.AddEvent("notify failed", trace.WithAttributes(attribute.String("error", err.Error())))
			s.logger.Warn("outcome notification failed", zap.Error(err))
		}
	}
}

func productName(c domain.SupplierCandidate) string {
	if c.ProductName != "" {
		return c.ProductName
	}
	return "Replenished item " + c.SKU
}

func productDescription(c domain.SupplierCandidate) string {
	if c.Description != "" {
		return c.Description
	}
	return "Transferred from " + c.NodeName
}
