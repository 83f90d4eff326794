package errors

import (
	"errors"
	"testing"
)

func TestConstructionError(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewConstructionError(ErrorTypeDatabaseOpen, "open", underlying)

	if err.Type != ErrorTypeDatabaseOpen {
		t.Errorf("expected Type to be ErrorTypeDatabaseOpen, got %v", err.Type)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("expected error to unwrap to underlying error")
	}

	expectedMsg := "database_open open failed: disk full"
	if err.Error() != expectedMsg {
		t.Errorf("expected error message %q, got %q", expectedMsg, err.Error())
	}
	if err.Timestamp.IsZero() {
		t.Errorf("expected non-zero timestamp")
	}
}

func TestConstructionErrorNoUnderlying(t *testing.T) {
	err := NewConstructionError(ErrorTypeNoStoreLibrary, "resolve", nil)
	expectedMsg := "no_store_library resolve failed"
	if err.Error() != expectedMsg {
		t.Errorf("expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	err1 := errors.New("error 1")
	err2 := errors.New("error 2")
	err3 := errors.New("error 3")

	multiErr := NewMultiError([]error{err1, err2, err3})
	if len(multiErr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d", len(multiErr.Errors))
	}
	if multiErr.Error() != "3 errors: [error 1 error 2 error 3]" {
		t.Errorf("unexpected message %q", multiErr.Error())
	}

	singleErr := NewMultiError([]error{err1})
	if singleErr.Error() != "error 1" {
		t.Errorf("expected 'error 1', got %q", singleErr.Error())
	}

	emptyErr := NewMultiError([]error{})
	if emptyErr.Error() != "no errors" {
		t.Errorf("expected 'no errors', got %q", emptyErr.Error())
	}

	nilFiltered := NewMultiError([]error{err1, nil, err2, nil})
	if len(nilFiltered.Errors) != 2 {
		t.Errorf("expected 2 errors after filtering nil, got %d", len(nilFiltered.Errors))
	}

	if len(multiErr.Unwrap()) != 3 {
		t.Errorf("expected 3 unwrapped errors, got %d", len(multiErr.Unwrap()))
	}
}
