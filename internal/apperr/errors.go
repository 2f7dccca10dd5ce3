package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for workflow and lookup failures
var (
	ErrNotFound          = errors.New("not found")
	ErrBundleFull        = errors.New("bundle is full")
	ErrBundleIncomplete  = errors.New("bundle is incomplete")
	ErrInvalidTransition = errors.New("invalid bundle workflow transition")
)

// ValidationError reports invalid input. Nothing was mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation creates a validation error for a field
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StockConflictError reports that a change would exceed available stock.
// It is transient: the caller may retry once availability changes.
type StockConflictError struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested=%d, available=%d",
		e.ProductID, e.Requested, e.Available)
}

// NewStockConflict creates a stock conflict error
func NewStockConflict(productID string, requested, available int) *StockConflictError {
	return &StockConflictError{ProductID: productID, Requested: requested, Available: available}
}

// NotFoundf wraps ErrNotFound with context
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// IsStockConflict reports whether err carries a StockConflictError
func IsStockConflict(err error) bool {
	var sc *StockConflictError
	return errors.As(err, &sc)
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
