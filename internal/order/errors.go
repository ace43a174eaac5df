package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrDuplicateSubmission = errors.New("duplicate order submission")
)

// Validation reason codes.
const (
	ReasonMissingPlatform         = "missing_platform"
	ReasonMissingAccountType      = "missing_account_type"
	ReasonInvalidPhone            = "invalid_phone"
	ReasonInvalidPrice            = "invalid_price"
	ReasonInvalidPaymentMethod    = "invalid_payment_method"
	ReasonMissingPaymentReference = "missing_payment_reference"
	ReasonInvalidPaymentReference = "invalid_payment_reference"
)

// ValidationError is returned when an order fails a business rule.
// Such an order is never persisted nor announced.
type ValidationError struct {
	Reason string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
}

// StorageError wraps a persistence failure that aborted an operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
