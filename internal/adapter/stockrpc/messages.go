package stockrpc

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/dc-replenish/internal/core/domain"
)

type DebitStatus string

const (
	DebitStatusApplied      DebitStatus = "applied"
	DebitStatusInsufficient DebitStatus = "insufficient"
)

type DebitRequest struct {
	TransferID string `json:"transfer_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
}

func (r *DebitRequest) Transfer() domain.TransferRequest {
	return domain.TransferRequest{TransferID: r.TransferID, SKU: r.SKU, Quantity: r.Quantity}
}

// DebitResponse is shared by the gRPC and HTTP transports.
type DebitResponse struct {
	Status    DebitStatus `json:"status"`
	Remaining int         `json:"remaining"`
	Message   string      `json:"message,omitempty"`
}

type CreditRequest struct {
	TransferID  string          `json:"transfer_id"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

func (r *CreditRequest) Credit() domain.CreditRequest {
	return domain.CreditRequest{
		TransferRequest: domain.TransferRequest{TransferID: r.TransferID, SKU: r.SKU, Quantity: r.Quantity},
		Name:            r.Name,
		Description:     r.Description,
		Price:           r.Price,
	}
}

type CreditResponse struct {
	Item domain.StockItem `json:"item"`
}

type AvailabilityRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type AvailabilityResponse struct {
	Availability domain.Availability `json:"availability"`
}
