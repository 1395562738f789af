package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rl1809/dc-replenish/internal/adapter/stockrpc"
	"github.com/rl1809/dc-replenish/internal/core/domain"
)

const debitPath = "/api/transfers/debit"

// HTTPDebiter sends debit legs to a peer's JSON endpoint.
type HTTPDebiter struct {
	client *http.Client
}

func NewHTTPDebiter(client *http.Client) *HTTPDebiter {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDebiter{client: client}
}

func (h *HTTPDebiter) Debit(ctx context.Context, address string, req domain.TransferRequest) (domain.DebitResult, error) {
	unreachable := domain.DebitResult{Outcome: domain.DebitUnreachable}

	body, err := json.Marshal(stockrpc.DebitRequest{TransferID: req.TransferID, SKU: req.SKU, Quantity: req.Quantity})
	if err != nil {
		return unreachable, err
	}

	url := peerURL(address) + debitPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return unreachable, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return unreachable, fmt.Errorf("%w: %s: %v", domain.ErrUnreachable, url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return unreachable, fmt.Errorf("%w: %s: status %d", domain.ErrUnreachable, url, resp.StatusCode)
	}

	var out stockrpc.DebitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return unreachable, fmt.Errorf("debit at %s: status %d: decode response: %w", address, resp.StatusCode, err)
	}

	if resp.StatusCode >= 300 && out.Status != stockrpc.DebitStatusInsufficient {
		return unreachable, fmt.Errorf("debit rejected by %s: status %d: %s", address, resp.StatusCode, out.Message)
	}
	return debitResult(address, &out)
}

func (h *HTTPDebiter) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

func peerURL(address string) string {
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return strings.TrimRight(address, "/")
	}
	return "http://" + strings.TrimRight(address, "/")
}
