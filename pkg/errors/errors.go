// Package errors provides structured error handling for Tideflow.
// Every error carries a classification that the replication engine uses
// to decide between server-dictated waits, bounded backoff, and failing fast.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeRateLimit represents a rate-limit response from the remote
	// (HTTP 429). The server dictates the wait via the retry_after detail.
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeServer represents a transient remote server error (5xx)
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient represents a non-retryable remote client error
	// (4xx other than 429, including auth failures)
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeDecode represents a malformed or truncated response body.
	// Treated as transient since it may indicate a corrupted response.
	ErrorTypeDecode ErrorType = "decode"
	// ErrorTypeOutOfOrder represents a violation of the remote's id-ordering
	// contract. Never retried: a retry would repeat the same violation.
	ErrorTypeOutOfOrder ErrorType = "out_of_order"
	// ErrorTypeRetryExhausted represents a transient error that survived
	// the maximum number of retry attempts
	ErrorTypeRetryExhausted ErrorType = "retry_exhausted"
	// ErrorTypeState represents bookmark/state persistence errors
	ErrorTypeState ErrorType = "state"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// IsRateLimit reports whether the error is a remote rate-limit signal
func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsTransient reports whether the error belongs to the bounded-backoff
// retry set: remote 5xx responses and undecodable bodies.
func IsTransient(err error) bool {
	return IsType(err, ErrorTypeServer) || IsType(err, ErrorTypeDecode)
}

// IsFatal reports whether the error must surface to the caller without retry
func IsFatal(err error) bool {
	return err != nil && !IsRateLimit(err) && !IsTransient(err)
}

// RetryAfterOf extracts the server-provided wait duration from a rate-limit
// error. Returns false when the error carries no retry_after detail.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	d, ok := e.Details["retry_after"].(time.Duration)
	return d, ok
}

// HTTPStatusOf extracts the HTTP status code detail, if present
func HTTPStatusOf(err error) (int, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	code, ok := e.Details["http_status"].(int)
	return code, ok
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
