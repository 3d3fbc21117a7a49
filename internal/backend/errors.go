package backend

import (
	"errors"
	"fmt"
)

// Error represents a failure in the persistence layer.
//
// Backend errors fall into two families:
//   - Connection errors: transient, the caller may retry after the driver
//     has lazily reopened its connection.
//   - Context errors: a scoped resource (Transaction, ReadOnlyCursor) was
//     used outside its scope, or a cursor received a mutating statement.
//     These are programming errors, fatal to the call.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying driver error, if any.
	Err error
}

// ErrorCode categorizes backend errors.
type ErrorCode string

const (
	// ErrCodeConnection indicates the underlying connection failed.
	// The driver discards the connection and reopens it on next use.
	ErrCodeConnection ErrorCode = "CONNECTION"

	// ErrCodeNotInContext indicates a Transaction or ReadOnlyCursor was
	// used outside its open/close scope.
	ErrCodeNotInContext ErrorCode = "NOT_IN_CONTEXT"

	// ErrCodeNestedTransaction indicates a second Transaction was begun
	// while one is already open on the same driver.
	ErrCodeNestedTransaction ErrorCode = "NESTED_TRANSACTION"

	// ErrCodeNotAllowedQuery indicates a ReadOnlyCursor received a
	// statement containing a mutating keyword.
	ErrCodeNotAllowedQuery ErrorCode = "NOT_ALLOWED_QUERY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver error for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// IsConnectionError reports whether err is a connection-class failure.
// Uses errors.As to handle wrapped errors.
func IsConnectionError(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsNotInContextError reports whether err is a scope violation.
func IsNotInContextError(err error) bool { return hasCode(err, ErrCodeNotInContext) }

// IsNestedTransactionError reports whether err is a nested-transaction
// rejection.
func IsNestedTransactionError(err error) bool { return hasCode(err, ErrCodeNestedTransaction) }

// IsNotAllowedQueryError reports whether err is a read-only cursor
// rejecting a mutating statement.
func IsNotAllowedQueryError(err error) bool { return hasCode(err, ErrCodeNotAllowedQuery) }

func hasCode(err error, code ErrorCode) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

func connErr(msg string, err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: msg, Err: err}
}
