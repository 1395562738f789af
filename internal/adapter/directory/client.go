package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

const (
	suppliersPath = "/api/suppliers"
	outcomePath   = "/api/transfers/outcome"
	registerPath  = "/api/nodes/register"

	// RequesterHeader tells the HUB which node is asking so it can leave it out.
	RequesterHeader = "X-Requester-Address"
)

// Client talks to the HUB. It never retries; callers decide what a failed
// lookup means.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) FindSuppliers(ctx context.Context, sku string, quantity int, requesterAddress string) ([]domain.SupplierCandidate, error) {
	if err := (domain.TransferRequest{SKU: sku, Quantity: quantity}).Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("sku", sku)
	query.Set("quantity", strconv.Itoa(quantity))

	var candidates []domain.SupplierCandidate
	if err := c.getJSON(ctx, c.baseURL+suppliersPath+"?"+query.Encode(), requesterAddress, &candidates); err != nil {
		return nil, &domain.DirectoryUnavailableError{Op: "find suppliers", Err: err}
	}

	filtered := candidates[:0]
	for _, candidate := range candidates {
		if requesterAddress != "" && candidate.Address == requesterAddress {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered, nil
}

func (c *Client) NotifyOutcome(ctx context.Context, n domain.OutcomeNotification) error {
	if err := c.postJSON(ctx, c.baseURL+outcomePath, n, nil); err != nil {
		return &domain.DirectoryUnavailableError{Op: "notify outcome", Err: err}
	}
	return nil
}

func (c *Client) Register(ctx context.Context, node domain.NodeIdentity) error {
	if err := c.postJSON(ctx, c.baseURL+registerPath, node, nil); err != nil {
		return &domain.DirectoryUnavailableError{Op: "register", Err: err}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) getJSON(ctx context.Context, url, requester string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if requester != "" {
		req.Header.Set(RequesterHeader, requester)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
