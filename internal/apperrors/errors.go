// Package apperrors defines the error taxonomy shared by the cart and sale
// domains. Handlers translate these into HTTP statuses.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/mvega/pos-checkout-service/internal/model"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrItemNotFound    = errors.New("line item not found")
	ErrProductNotFound = errors.New("product not found")
)

// ValidationError reports malformed input: missing or non-positive quantity,
// missing required selection, unknown payment method.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// VariantNotFoundError reports the exact selection attempted so a mismatch
// between the cart's captured attributes and the catalog is diagnosable.
type VariantNotFoundError struct {
	ProductID string
	Selection model.VariantSelector
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("no variant of product %s matches size=%q color=%q",
		e.ProductID, e.Selection.Size, e.Selection.Color)
}

type InsufficientStockError struct {
	ProductID string
	Selection model.VariantSelector
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (size=%q color=%q): requested %d, available %d",
		e.ProductID, e.Selection.Size, e.Selection.Color, e.Requested, e.Available)
}

// BillingError is non-fatal: the sale persists and the failure is surfaced to
// the caller as a warning.
type BillingError struct {
	Err error
}

func (e *BillingError) Error() string {
	return fmt.Sprintf("electronic invoice request failed: %v", e.Err)
}

func (e *BillingError) Unwrap() error { return e.Err }

// PersistenceError is fatal for the finalize operation.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist sale: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
