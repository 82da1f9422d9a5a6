// Package errs provides the unified error type used across all of s3hub.
//
// Every subsystem (filestore, listing, mutate, api, …) wraps its native
// errors into *errs.Error before returning them to callers. Callers use
// the Is* predicates to handle errors without importing driver-specific
// packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindListingFailed, "list objects failed", s3Err)
//
//	// In a handler — check error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing backend-specific codes.
// All storage providers map their native errors to one of these kinds,
// giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no object, no bucket, no profile
	ErrKindConnectionFailed         // cannot reach the storage backend
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindListingFailed            // backend listing call failed
	ErrKindBackendFailed            // backend write / delete / sign failed
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindPartialBatch             // a batch failed after some items completed
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindListingFailed:
		return "listing_failed"
	case ErrKindBackendFailed:
		return "backend_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindPartialBatch:
		return "partial_batch"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all s3hub subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original backend-level error, preserved for logging
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

// BatchError reports a multi-item batch (delete / upload) that failed
// after Completed of Total items were already applied. The completed
// items are not rolled back; callers use the counts to tell the user
// exactly which subset succeeded.
type BatchError struct {
	Completed int
	Total     int
	Cause     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("[%s] %d of %d items completed before failure: %v",
		ErrKindPartialBatch, e.Completed, e.Total, e.Cause)
}

func (e *BatchError) Unwrap() error {
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

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (missing object, unknown bucket, unknown profile, …).
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

// IsListingFailed reports whether err is a failed backend listing call.
func IsListingFailed(err error) bool {
	return kindOf(err) == ErrKindListingFailed
}

// IsBackendFailed reports whether err is a backend mutation or signing failure.
func IsBackendFailed(err error) bool {
	return kindOf(err) == ErrKindBackendFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsPartialBatch reports whether err is a *BatchError: a batch that
// failed partway with some items already applied.
func IsPartialBatch(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// AsBatch extracts the *BatchError from the chain, if any.
func AsBatch(err error) (*BatchError, bool) {
	var be *BatchError
	ok := errors.As(err, &be)
	return be, ok
}

// Kind extracts the ErrKind from any error in the chain.
func Kind(err error) ErrKind {
	if IsPartialBatch(err) {
		return ErrKindPartialBatch
	}
	return kindOf(err)
}

func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
