package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockItem is the on-hand record of one SKU at one node.
type StockItem struct {
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

func (s StockItem) Validate() error {
	if s.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidRequest)
	}
	if s.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	}
	if s.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidRequest)
	}
	return nil
}

// DecrementStatus is what a store did with one debit leg.
type DecrementStatus int

const (
	DecrementInsufficient DecrementStatus = iota
	DecrementApplied
	// DecrementReplayed means the transfer id was already applied; nothing moved.
	DecrementReplayed
)

// Succeeded reports whether the leg counts as debited, including replays.
func (s DecrementStatus) Succeeded() bool {
	return s == DecrementApplied || s == DecrementReplayed
}

// Availability answers the directory asking whether sku is held in quantity.
type Availability struct {
	SKU       string          `json:"sku"`
	Available bool            `json:"available"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}
