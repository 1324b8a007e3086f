package domain

import (
	"errors"
	"fmt"
)

// Domain errors (no external dependencies).
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrDuplicate             = errors.New("duplicate resource")
	ErrConflict              = errors.New("conflict with current state")
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrSameWarehouseTransfer = errors.New("transfer source and destination are the same warehouse")
	ErrNegativeStock         = errors.New("movement would leave negative stock")
	ErrValidationFailed      = errors.New("validation failed")
	ErrTransientStore        = errors.New("transient store failure")
)

// InsufficientStockError carries available vs requested for a failed
// net-decreasing movement. Matches ErrInsufficientStock via errors.Is.
type InsufficientStockError struct {
	TitleID     string
	WarehouseID string
	Available   int64
	Requested   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for title %s at warehouse %s: available %d, requested %d",
		e.TitleID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures from the validation engine.
// Matches ErrValidationFailed via errors.Is.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidationFailed.Error()
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
