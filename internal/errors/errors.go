// Package errors defines the typed error taxonomy for facade construction
// and sub-component wiring failures.
package errors

import (
	"fmt"
	"time"
)

// ErrorType names a category of construction failure.
type ErrorType string

const (
	ErrorTypeDatabaseOpen    ErrorType = "database_open"
	ErrorTypeNoStoreLibrary  ErrorType = "no_store_library"
	ErrorTypeStorePathCreate ErrorType = "store_path_create"
	ErrorTypeIndexStoreOpen  ErrorType = "index_store_open"
	ErrorTypeIngestionInit   ErrorType = "ingestion_init"
)

// ConstructionError wraps a fatal (or, for StorePathCreate, non-fatal but
// recorded) failure encountered while building an IndexFacade.
type ConstructionError struct {
	Type       ErrorType
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewConstructionError creates a construction error with context.
func NewConstructionError(t ErrorType, op string, err error) *ConstructionError {
	return &ConstructionError{
		Type:       t,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed", e.Type, e.Operation)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *ConstructionError) Unwrap() error {
	return e.Underlying
}

// MultiError aggregates independent errors, e.g. non-fatal warnings
// recorded alongside a later fatal failure.
type MultiError struct {
	Errors []error
}

// NewMultiError filters nils and wraps the rest.
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// Error implements the error interface.
func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
	}
}

// Unwrap returns all errors for errors.Is/As (Go 1.20+ multi-unwrap).
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
