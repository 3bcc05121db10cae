package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for gateway operations.
type ErrorCode string

const (
	// ErrCodeAdapterParse indicates a malformed or unexpected wire payload.
	ErrCodeAdapterParse ErrorCode = "ADAPTER_PARSE"
	// ErrCodeSessionNotFound indicates a session lookup failed where one must exist.
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrCodeHandlerTimeout indicates a feature handler exceeded its time budget.
	ErrCodeHandlerTimeout ErrorCode = "HANDLER_TIMEOUT"
	// ErrCodeHandlerFailed indicates a feature handler returned a failure.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
	// ErrCodeUpstreamUnavailable indicates the upstream feature API could not be reached.
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	// ErrCodeRateLimitExceeded indicates a caller exceeded its request rate.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// GatewayError represents a structured error for gateway operations.
type GatewayError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *GatewayError) WithContext(key string, value interface{}) *GatewayError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a GatewayError with the given code and message.
func New(code ErrorCode, message string) *GatewayError {
	return &GatewayError{Code: code, Message: message}
}

// Newf creates a GatewayError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *GatewayError {
	return &GatewayError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a GatewayError wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *GatewayError {
	return &GatewayError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the error code of err, or empty string if err is not a GatewayError.
func CodeOf(err error) ErrorCode {
	var ge *GatewayError
	if stderrors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
