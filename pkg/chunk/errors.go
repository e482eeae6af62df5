package chunk

import (
	"errors"
	"fmt"
)

// ErrorCode represents the type of engine error that occurred.
type ErrorCode int

const (
	// ErrInvalidArgument indicates a request that is rejected before any
	// substrate call (non-positive batch size, empty key).
	ErrInvalidArgument ErrorCode = iota + 1

	// ErrSegmentMissing indicates a segment named by metadata is absent in
	// the substrate. This signals data loss or a concurrent writer race and
	// is never silently converted into a truncated result.
	ErrSegmentMissing

	// ErrStoreFailure wraps a failure from the underlying key-value store.
	ErrStoreFailure
)

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrSegmentMissing:
		return "segment_missing"
	case ErrStoreFailure:
		return "store_failure"
	default:
		return "unknown"
	}
}

// Error is the typed error returned by all engine operations.
type Error struct {
	Code    ErrorCode
	Message string
	Key     string // logical array key, when known
	Err     error  // wrapped substrate error, when any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		return fmt.Sprintf("chunk: %s: %v", msg, e.Err)
	}
	return fmt.Sprintf("chunk: %s", msg)
}

// Unwrap returns the wrapped substrate error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInvalidArgumentError creates an Error for request validation failures.
func NewInvalidArgumentError(message string) *Error {
	return &Error{Code: ErrInvalidArgument, Message: message}
}

// NewSegmentMissingError creates an Error for a segment that metadata says
// should exist but the substrate does not have.
func NewSegmentMissingError(key string, index int) *Error {
	return &Error{
		Code:    ErrSegmentMissing,
		Message: fmt.Sprintf("segment %d missing", index),
		Key:     key,
	}
}

// NewStoreFailureError wraps a substrate error.
func NewStoreFailureError(key, operation string, err error) *Error {
	return &Error{
		Code:    ErrStoreFailure,
		Message: fmt.Sprintf("substrate %s failed", operation),
		Key:     key,
		Err:     err,
	}
}

// CodeOf extracts the ErrorCode from err, or 0 if err is not an engine error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
