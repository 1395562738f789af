package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/port"
)

// ReorderPolicy triggers a replenishment once on-hand stock drops below
// Threshold. A zero Threshold disables it.
type ReorderPolicy struct {
	Threshold int
	Quantity  int
}

type Submitter interface {
	Submit(sku string, quantity int) error
}

// StockService is the supplier side of a transfer and the local stock API.
type StockService struct {
	store     port.InventoryStore
	reorder   ReorderPolicy
	submitter Submitter
	logger    *zap.Logger
	tracer    trace.Tracer
}

func NewStockService(store port.InventoryStore, reorder ReorderPolicy, submitter Submitter, logger *zap.Logger, tracer trace.Tracer) *StockService {
	return &StockService{
		store:     store,
		reorder:   reorder,
		submitter: submitter,
		logger:    logger,
		tracer:    tracer,
	}
}

// Debit removes req.Quantity if all of it is on hand, and nothing otherwise.
// An unknown SKU counts as insufficient stock.
func (s *StockService) Debit(ctx context.Context, req domain.TransferRequest) (domain.StockItem, error) {
	ctx, span := s.tracer.Start(ctx, "stock.debit")
	defer span.End()
	span.SetAttributes(
		attribute.String("transfer.id", req.TransferID),
		attribute.String("stock.sku", req.SKU),
		attribute.Int("stock.quantity", req.Quantity),
	)

	if err := req.Validate(); err != nil {
		return domain.StockItem{}, err
	}

	item, status, err := s.store.DecrementStock(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decrement failed")
		return domain.StockItem{}, fmt.Errorf("stock decrement failed: %w", err)
	}
	if !status.Succeeded() {
		span.SetAttributes(attribute.Bool("stock.sufficient", false))
		return item, domain.ErrInsufficientStock
	}

	// a retried leg already ran the shortage check the first time
	if status == domain.DecrementReplayed {
		span.SetAttributes(attribute.Bool("transfer.replayed", true))
		s.logger.Debug("debit replayed",
			zap.String("transfer_id", req.TransferID),
			zap.String("sku", req.SKU),
		)
		return item, nil
	}

	span.SetAttributes(attribute.Int("stock.remaining", item.Quantity))
	s.logger.Info("stock debited",
		zap.String("transfer_id", req.TransferID),
		zap.String("sku", req.SKU),
		zap.Int("quantity", req.Quantity),
		zap.Int("remaining", item.Quantity),
	)
	s.checkShortage(item)
	return item, nil
}

func (s *StockService) Credit(ctx context.Context, req domain.CreditRequest) (domain.StockItem, error) {
	ctx, span := s.tracer.Start(ctx, "stock.credit")
	defer span.End()
	span.SetAttributes(
		attribute.String("transfer.id", req.TransferID),
		attribute.String("stock.sku", req.SKU),
		attribute.Int("stock.quantity", req.Quantity),
	)

	if err := req.Validate(); err != nil {
		return domain.StockItem{}, err
	}

	item, err := s.store.IncrementStock(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment failed")
		return domain.StockItem{}, &domain.LocalWriteError{SKU: req.SKU, Err: err}
	}
	return item, nil
}

func (s *StockService) Availability(ctx context.Context, sku string, quantity int) (domain.Availability, error) {
	if err := (domain.TransferRequest{SKU: sku, Quantity: quantity}).Validate(); err != nil {
		return domain.Availability{}, err
	}

	item, err := s.store.GetItem(ctx, sku)
	if errors.Is(err, domain.ErrItemNotFound) {
		return domain.Availability{SKU: sku}, nil
	}
	if err != nil {
		return domain.Availability{}, err
	}

	return domain.Availability{
		SKU:       sku,
		Available: item.Quantity >= quantity,
		Price:     item.Price,
		Quantity:  item.Quantity,
	}, nil
}

func (s *StockService) Item(ctx context.Context, sku string) (domain.StockItem, error) {
	if sku == "" {
		return domain.StockItem{}, fmt.Errorf("%w: sku is required", domain.ErrInvalidRequest)
	}
	return s.store.GetItem(ctx, sku)
}

func (s *StockService) checkShortage(item domain.StockItem) {
	if s.submitter == nil || s.reorder.Threshold <= 0 || item.Quantity >= s.reorder.Threshold {
		return
	}

	err := s.submitter.Submit(item.SKU, s.reorder.Quantity)
	switch {
	case err == nil:
		s.logger.Info("shortage detected, replenishment queued",
			zap.String("sku", item.SKU),
			zap.Int("remaining", item.Quantity),
			zap.Int("reorder_quantity", s.reorder.Quantity),
		)
	case errors.Is(err, domain.ErrDuplicateRequest):
		s.logger.Debug("replenishment already pending", zap.String("sku", item.SKU))
	default:
		s.logger.Warn("could not queue replenishment", zap.String("sku", item.SKU), zap.Error(err))
	}
}
