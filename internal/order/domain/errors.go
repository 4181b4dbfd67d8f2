package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound marks a line item referencing a product the
	// catalog does not know.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductUnavailable marks a product-service call that could not be
	// completed: unreachable, timed out or cancelled. Never success.
	ErrProductUnavailable = errors.New("product service unavailable")
)

// ValidationError rejects a malformed or missing request field before any
// remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError rejects a placement whose requested quantity
// exceeds the available inventory for a product.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// IllegalTransitionError rejects a lifecycle transition the state machine
// forbids.
type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// RemoteError carries a non-2xx product-service response that fits no more
// specific category.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("product service error (%d): %s", e.StatusCode, e.Message)
}
