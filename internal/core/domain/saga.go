package domain

import "github.com/shopspring/decimal"

type SagaState string

const (
	StateDiscovering      SagaState = "discovering"
	StateSelecting        SagaState = "selecting"
	StateDebitingSupplier SagaState = "debiting_supplier"
	StateCreditingSelf    SagaState = "crediting_self"
	StateNotifying        SagaState = "notifying"
	StateCompleted        SagaState = "completed"
	StateAborted          SagaState = "aborted"
)

// ReplenishResult describes a finished saga. On abort only TransferID, SKU,
// Quantity and State are guaranteed to be set.
type ReplenishResult struct {
	TransferID string          `json:"transfer_id"`
	SKU        string          `json:"sku"`
	Quantity   int             `json:"quantity"`
	Supplier   NodeIdentity    `json:"supplier"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	State      SagaState       `json:"state"`
}
