package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrItemNotFound         = errors.New("item not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrUnreachable          = errors.New("peer unreachable")
	ErrDuplicateRequest     = errors.New("replenishment already in flight")
	ErrNoSupplierFound      = errors.New("no supplier found")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrTransferFailed       = errors.New("transfer failed")
	ErrPartialTransfer      = errors.New("partial transfer failure")
	ErrLocalWrite           = errors.New("local write failure")
)

// DirectoryUnavailableError wraps the transport or status failure of a
// directory call.
type DirectoryUnavailableError struct {
	Op  string
	Err error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("directory %s: %v", e.Op, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error { return e.Err }

func (e *DirectoryUnavailableError) Is(target error) bool {
	return target == ErrDirectoryUnavailable
}

// TransferFailedError is a debit-leg failure. Nothing changed on either node,
// so the whole saga may be retried.
type TransferFailedError struct {
	SKU             string
	Quantity        int
	SupplierAddress string
	Err             error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("transfer of %d x %s from %s failed: %v", e.Quantity, e.SKU, e.SupplierAddress, e.Err)
}

func (e *TransferFailedError) Unwrap() error { return e.Err }

func (e *TransferFailedError) Is(target error) bool {
	return target == ErrTransferFailed
}

// LocalWriteError is a failed increment against the local store.
type LocalWriteError struct {
	SKU string
	Err error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("local write of %s failed: %v", e.SKU, e.Err)
}

func (e *LocalWriteError) Unwrap() error { return e.Err }

func (e *LocalWriteError) Is(target error) bool {
	return target == ErrLocalWrite
}

// PartialTransferError means the supplier was debited but the local credit
// never landed. The stock is out of both inventories until someone reconciles
// it using the fields below.
type PartialTransferError struct {
	TransferID      string
	SKU             string
	Quantity        int
	SupplierName    string
	SupplierAddress string
	OccurredAt      time.Time
	Err             error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("partial transfer %s: %d x %s debited at %s (%s) but not credited locally: %v",
		e.TransferID, e.Quantity, e.SKU, e.SupplierAddress, e.SupplierName, e.Err)
}

func (e *PartialTransferError) Unwrap() error { return e.Err }

func (e *PartialTransferError) Is(target error) bool {
	return target == ErrPartialTransfer
}
