package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/core/domain"
	"github.com/rl1809/dc-replenish/internal/core/service"
)

type HTTPHandler struct {
	stockService *service.StockService
	dispatcher   *service.Dispatcher
	registration *service.RegistrationAgent
	logger       *zap.Logger
}

type ReplenishHTTPRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type ReplenishHTTPResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Result  *domain.ReplenishResult `json:"result,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func NewHTTPHandler(stockService *service.StockService, dispatcher *service.Dispatcher, registration *service.RegistrationAgent, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		stockService: stockService,
		dispatcher:   dispatcher,
		registration: registration,
		logger:       logger,
	}
}

func (h *HTTPHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/transfers/debit", h.Debit)
	mux.HandleFunc("POST /api/transfers/credit", h.Credit)
	mux.HandleFunc("GET /api/stock/{sku}/availability", h.Availability)
	mux.HandleFunc("GET /api/stock/{sku}", h.GetItem)
	mux.HandleFunc("POST /api/replenishments", h.Replenish)
	mux.HandleFunc("POST /api/register-self", h.RegisterSelf)
	return mux
}

func (h *HTTPHandler) Debit(w http.ResponseWriter, r *http.Request) {
	var req stockrpc.DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, stockrpc.DebitResponse{Message: "invalid request body"})
		return
	}

	item, err := h.stockService.Debit(r.Context(), req.Transfer())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			writeJSON(w, http.StatusConflict, stockrpc.DebitResponse{
				Status:    stockrpc.DebitStatusInsufficient,
				Remaining: item.Quantity,
				Message:   "insufficient stock",
			})
		case errors.Is(err, domain.ErrInvalidRequest):
			writeJSON(w, http.StatusBadRequest, stockrpc.DebitResponse{Message: err.Error()})
		default:
			h.logger.Error("debit failed", zap.String("sku", req.SKU), zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, stockrpc.DebitResponse{Message: "stock store unavailable"})
		}
		return
	}

	writeJSON(w, http.StatusOK, stockrpc.DebitResponse{
		Status:    stockrpc.DebitStatusApplied,
		Remaining: item.Quantity,
	})
}

func (h *HTTPHandler) Credit(w http.ResponseWriter, r *http.Request) {
	var req stockrpc.CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "invalid request body"})
		return
	}

	item, err := h.stockService.Credit(r.Context(), req.Credit())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
			return
		}
		h.logger.Error("credit failed", zap.String("sku", req.SKU), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, stockrpc.CreditResponse{Item: item})
}

func (h *HTTPHandler) Availability(w http.ResponseWriter, r *http.Request) {
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "quantity must be an integer"})
		return
	}

	availability, err := h.stockService.Availability(r.Context(), r.PathValue("sku"), quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, availability)
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.stockService.Item(r.Context(), r.PathValue("sku"))
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "item not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) Replenish(w http.ResponseWriter, r *http.Request) {
	var req ReplenishHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ReplenishHTTPResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	result, err := h.dispatcher.Replenish(r.Context(), req.SKU, req.Quantity)
	if err != nil {
		status, message := replenishStatus(err)
		writeJSON(w, status, ReplenishHTTPResponse{
			Success: false,
			Message: message,
			Result:  &result,
		})
		return
	}

	writeJSON(w, http.StatusOK, ReplenishHTTPResponse{
		Success: true,
		Message: "stock replenished",
		Result:  &result,
	})
}

func replenishStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNoSupplierFound):
		return http.StatusNotFound, "no supplier found"
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return http.StatusBadGateway, "directory unavailable"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "replenishment already in flight"
	case errors.Is(err, domain.ErrTransferFailed):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPartialTransfer):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *HTTPHandler) RegisterSelf(w http.ResponseWriter, r *http.Request) {
	if err := h.registration.Register(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Message: "registration failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
