package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NodeIdentity names a DC and the address its peers reach it on.
type NodeIdentity struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// SupplierCandidate is one directory answer to a discovery query. It is only
// valid for the saga that asked for it; quantities may be stale by the time
// the debit leg runs.
type SupplierCandidate struct {
	SKU         string          `json:"sku"`
	NodeName    string          `json:"node_name"`
	Address     string          `json:"address"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ProductName string          `json:"product_name,omitempty"`
	Description string          `json:"description,omitempty"`
}

func (c SupplierCandidate) Node() NodeIdentity {
	return NodeIdentity{Name: c.NodeName, Address: c.Address}
}

// TransferRequest is the payload of a debit leg. TransferID is reused across
// retries so that the receiving store applies the leg at most once.
type TransferRequest struct {
	TransferID string `json:"transfer_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
}

func (r TransferRequest) Validate() error {
	if r.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidRequest)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	return nil
}

// CreditRequest is a TransferRequest enriched with the fields needed to create
// the record when the receiving node has never held the SKU.
type CreditRequest struct {
	TransferRequest
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

func (r CreditRequest) Validate() error {
	if err := r.TransferRequest.Validate(); err != nil {
		return err
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Item is the record a credit creates when the SKU is new to the store.
func (r CreditRequest) Item() StockItem {
	return StockItem{
		SKU:         r.SKU,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
	}
}

type DebitOutcome int

const (
	DebitApplied DebitOutcome = iota + 1
	DebitInsufficient
	DebitUnreachable
)

func (o DebitOutcome) String() string {
	switch o {
	case DebitApplied:
		return "applied"
	case DebitInsufficient:
		return "insufficient"
	case DebitUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DebitResult is the tagged result of a remote debit. Remaining is only
// meaningful for DebitApplied.
type DebitResult struct {
	Outcome   DebitOutcome
	Remaining int
}

type TransferStatus string

const (
	TransferStatusCompleted TransferStatus = "completed"
)

// OutcomeNotification is the best-effort report sent to the directory after a
// transfer has physically completed.
type OutcomeNotification struct {
	TransferID  string          `json:"transfer_id"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Origin      NodeIdentity    `json:"origin"`
	Destination NodeIdentity    `json:"destination"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      TransferStatus  `json:"status"`
	Note        string          `json:"note,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
