package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/core/service"
)

type GRPCHandler struct {
	stockrpc.UnimplementedStockTransferServer
	stockService *service.StockService
	logger       *zap.Logger
}

func NewGRPCHandler(stockService *service.StockService, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{stockService: stockService, logger: logger}
}

func (h *GRPCHandler) Debit(ctx context.Context, req *stockrpc.DebitRequest) (*stockrpc.DebitResponse, error) {
	item, err := h.stockService.Debit(ctx, req.Transfer())
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			return &stockrpc.DebitResponse{
				Status:    stockrpc.DebitStatusInsufficient,
				Remaining: item.Quantity,
				Message:   "insufficient stock",
			}, nil
		}
		if errors.Is(err, domain.ErrInvalidRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.logger.Error("debit failed", zap.String("sku", req.SKU), zap.Error(err))
		return nil, status.Error(codes.Unavailable, "stock store unavailable")
	}

	return &stockrpc.DebitResponse{
		Status:    stockrpc.DebitStatusApplied,
		Remaining: item.Quantity,
	}, nil
}

func (h *GRPCHandler) Credit(ctx context.Context, req *stockrpc.CreditRequest) (*stockrpc.CreditResponse, error) {
	item, err := h.stockService.Credit(ctx, req.Credit())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		h.logger.Error("credit failed", zap.String("sku", req.SKU), zap.Error(err))
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &stockrpc.CreditResponse{Item: item}, nil
}

func (h *GRPCHandler) CheckAvailability(ctx context.Context, req *stockrpc.AvailabilityRequest) (*stockrpc.AvailabilityResponse, error) {
	availability, err := h.stockService.Availability(ctx, req.SKU, req.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}
	return &stockrpc.AvailabilityResponse{Availability: availability}, nil
}
