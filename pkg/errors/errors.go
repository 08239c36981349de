// Package errors provides standardized error types for the query warden.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the validation pipeline. Each maps to one rejection
// category; none of them is retryable.
const (
	CodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	CodeParseError         = "PARSE_ERROR"
	CodeUnsafeQuery        = "UNSAFE_QUERY"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeUnknownResource    = "UNKNOWN_RESOURCE"
	CodeConfigurationError = "CONFIGURATION_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// WardenError represents a validation error with code, message, and optional details.
type WardenError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *WardenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *WardenError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *WardenError) Is(target error) bool {
	t, ok := target.(*WardenError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds details to the error.
func (e *WardenError) WithDetails(details map[string]interface{}) *WardenError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *WardenError) WithDetail(key string, value interface{}) *WardenError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrInvalidCustomerID = &WardenError{Code: CodeInvalidIdentifier, Message: "invalid customer id"}
	ErrInvalidOrderID    = &WardenError{Code: CodeInvalidIdentifier, Message: "invalid order id"}
	ErrUnknownResource   = &WardenError{Code: CodeUnknownResource, Message: "unrecognized logical resource"}
)

// New creates a new WardenError with the given code and message.
func New(code, message string) *WardenError {
	return &WardenError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a WardenError.
func Wrap(err error, code, message string) *WardenError {
	if err == nil {
		return nil
	}
	return &WardenError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *WardenError {
	if err == nil {
		return nil
	}
	return &WardenError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsInvalidIdentifier checks if an error is an identifier validation error.
func IsInvalidIdentifier(err error) bool {
	return GetCode(err) == CodeInvalidIdentifier
}

// IsParseError checks if an error is a SQL parse error.
func IsParseError(err error) bool {
	return GetCode(err) == CodeParseError
}

// IsUnsafeQuery checks if an error is a read-only classification rejection.
func IsUnsafeQuery(err error) bool {
	return GetCode(err) == CodeUnsafeQuery
}

// IsConfigurationError checks if an error is an allow-list configuration error.
func IsConfigurationError(err error) bool {
	return GetCode(err) == CodeConfigurationError
}

// IsUnknownResource checks if an error is an unrecognized resource rejection.
func IsUnknownResource(err error) bool {
	return GetCode(err) == CodeUnknownResource
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var wardenErr *WardenError
	if errors.As(err, &wardenErr) {
		return wardenErr.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var wardenErr *WardenError
	if errors.As(err, &wardenErr) {
		return wardenErr.Message
	}
	return err.Error()
}
