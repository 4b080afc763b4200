// Package errs provides the unified error type used across clusterdash.
//
// Every subsystem (cluster connector, action dispatch, config, web) wraps its
// native errors into *errs.Error before returning them to callers. Callers use
// the Is* predicates to handle errors without importing SDK-specific packages.
//
// Usage:
//
//	// In a connector, wrap native errors:
//	return errs.Wrap(errs.ErrKindPermissionDenied, "invalid api key", sdkErr)
//
//	// In a handler, check the error kind:
//	if errs.IsConnectionError(err) {
//	    http.Error(w, err.Error(), http.StatusBadGateway)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing SDK-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // unknown action, missing object
	ErrKindConnectionFailed         // cannot reach the cluster
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // cluster answered with an error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // rejected credential
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all clusterdash subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original SDK-level error, preserved for logging

	// Connect marks errors raised while building a connection handle.
	Connect bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Connection wraps cause as a connection-construction failure. If cause is
// already an *Error its kind is kept, otherwise ErrKindConnectionFailed is used.
func Connection(msg string, cause error) *Error {
	kind := ErrKindConnectionFailed
	var e *Error
	if errors.As(cause, &e) && e.Kind != ErrKindUnknown {
		kind = e.Kind
	}
	return &Error{Kind: kind, Message: msg, Cause: cause, Connect: true}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsQueryFailed reports whether err is a failed call against an open connection.
func IsQueryFailed(err error) bool {
	return kindOf(err) == ErrKindQueryFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsConnectionError reports whether err was raised while building a
// connection handle, whatever its kind.
func IsConnectionError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Connect
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
