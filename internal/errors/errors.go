package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a catalog error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrFetchFailure   ErrorCode = "FETCH_FAILURE"   // 502
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// CatalogError represents a structured error with code, status, and details.
type CatalogError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *CatalogError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CatalogError {
	return &CatalogError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewFetchFailure creates a 502 error for a failed upstream read.
// Network, status and decode failures are deliberately not distinguished.
func NewFetchFailure(err error) *CatalogError {
	return &CatalogError{
		Code:    ErrFetchFailure,
		Status:  502,
		Message: "failed to fetch species data",
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CatalogError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CatalogError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) a CatalogError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CatalogError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As extracts a CatalogError from err, wrapping unknown errors as INTERNAL.
func As(err error) *CatalogError {
	var cErr *CatalogError
	if stderrors.As(err, &cErr) {
		return cErr
	}
	return NewInternal(err)
}
