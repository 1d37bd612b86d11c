// Copyright (c) 2026 Strata. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Strata.

It provides a rich error type that bridges the gap between low-level
driver/storage errors and the engine's public API.

Architecture:

  - Error: A struct containing a machine-readable Code and a user-friendly message.
  - Classification: Kind predicates (IsNotFound, IsConflict, ...) for callers.
  - Wrapping: The Cause field preserves the full chain for [errors.Is]/[errors.As].

Every error that leaves the database facade is an [*Error] with one of the
codes below, so callers never have to inspect driver internals.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error classification.
type Code string

const (
	// CodeValidation marks structure, key, index, permission, role, or
	// query validator failures.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound marks a missing collection, attribute, index, or document.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict marks duplicate ids, indexes, or relationship keys.
	CodeConflict Code = "CONFLICT"
	// CodeAuthorization marks a role set that does not satisfy the required
	// permission kind.
	CodeAuthorization Code = "AUTHORIZATION"
	// CodeDependency marks an attribute still referenced by an index or
	// relationship.
	CodeDependency Code = "DEPENDENCY"
	// CodeTransaction marks commit/rollback without an active transaction or
	// exhausted deadlock retries.
	CodeTransaction Code = "TRANSACTION"
	// CodeDatabase marks a dialect/driver error bubbled from the SQL client.
	CodeDatabase Code = "DATABASE"
	// CodeTimeout marks a fired cancellation or deadline.
	CodeTimeout Code = "TIMEOUT"
	// CodeInternal marks unreachable invariants; always a bug.
	CodeInternal Code = "INTERNAL"
)

// Error is the canonical error type for the Strata engine.
//
// It carries a machine-readable code, a human-readable message safe to show
// to API consumers, and an optional cause retained for server-side logging.
type Error struct {
	// Code is the machine-readable error identifier.
	Code Code `json:"code"`
	// Message is a human-readable description of the failure.
	Message string `json:"error"`
	// Field optionally names the attribute or filter that caused the failure.
	Field string `json:"field,omitempty"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field %q)", e.Message, e.Field)
	}
	return e.Message
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *Error) Unwrap() error { return e.Cause }

// WithField returns a copy of the error annotated with the offending field.
func (e *Error) WithField(field string) *Error {
	clone := *e
	clone.Field = field
	return &clone
}

// # Constructors

// Validation creates a validation [*Error].
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation [*Error] with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found [*Error] for a named resource.
//
// Example:
//
//	apperr.NotFound("Collection") // "Collection not found"
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

// Conflict creates a conflict [*Error] for duplicate resources.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Authorization creates an authorization [*Error].
func Authorization(msg string) *Error {
	return &Error{Code: CodeAuthorization, Message: msg}
}

// Dependency creates a dependency [*Error].
func Dependency(msg string) *Error {
	return &Error{Code: CodeDependency, Message: msg}
}

// Transaction creates a transaction-state [*Error].
func Transaction(msg string, cause error) *Error {
	return &Error{Code: CodeTransaction, Message: msg, Cause: cause}
}

// Database creates a database [*Error] wrapping a driver-level cause.
func Database(msg string, cause error) *Error {
	return &Error{Code: CodeDatabase, Message: msg, Cause: cause}
}

// Timeout creates a timeout [*Error].
func Timeout(cause error) *Error {
	return &Error{Code: CodeTimeout, Message: "Operation timed out", Cause: cause}
}

// Internal creates an internal [*Error] wrapping an unexpected bug.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "An unexpected internal error occurred", Cause: cause}
}

// # Helpers

// As extracts the [*Error] from err's chain. It returns nil if not found.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// is reports whether err carries the given code anywhere in its chain.
func is(err error, code Code) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return is(err, CodeValidation) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsAuthorization reports whether err is an authorization error.
func IsAuthorization(err error) bool { return is(err, CodeAuthorization) }

// IsDependency reports whether err is a dependency error.
func IsDependency(err error) bool { return is(err, CodeDependency) }

// IsTransaction reports whether err is a transaction-state error.
func IsTransaction(err error) bool { return is(err, CodeTransaction) }

// IsDatabase reports whether err is a database error.
func IsDatabase(err error) bool { return is(err, CodeDatabase) }

// IsTimeout reports whether err is a timeout error.
func IsTimeout(err error) bool { return is(err, CodeTimeout) }
