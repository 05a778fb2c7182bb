// Package apperr defines the error taxonomy shared by the repositories, the
// booking engine and the HTTP handlers.  Every failure that crosses a package
// boundary carries one Kind; handlers translate the kind into a status code
// and repositories translate driver errors into kinds.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Kind classifies an error by how the caller should react to it.
type Kind string

const (
	// InvalidInput marks malformed or out-of-range request parameters.
	InvalidInput Kind = "invalid_input"
	// InsufficientInventory marks a booking rejected for lack of capacity.
	InsufficientInventory Kind = "insufficient_inventory"
	// ConcurrencyConflict marks an operation that lost a race with another
	// transaction and may be restarted from scratch.
	ConcurrencyConflict Kind = "concurrency_conflict"
	// NotFound marks a referenced entity that does not exist.
	NotFound Kind = "not_found"
	// StorageFailure marks an unavailable or misbehaving store.
	StorageFailure Kind = "storage_failure"
)

// Status maps the kind onto an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case InvalidInput, InsufficientInventory:
		return http.StatusBadRequest
	case ConcurrencyConflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// Retryable reports whether repeating the same request may succeed.
func (k Kind) Retryable() bool {
	return k == ConcurrencyConflict || k == StorageFailure
}

// Error is an application error of a given kind.  Message is safe to show to
// API clients (except for StorageFailure, which handlers never expose); Err is
// the underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = strings.ReplaceAll(string(e.Kind), "_", " ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target has no message (the
// package level sentinels), and an exact kind+message pair otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind sentinels for errors.Is checks.
var (
	ErrInvalidInput          = &Error{Kind: InvalidInput}
	ErrInsufficientInventory = &Error{Kind: InsufficientInventory}
	ErrConcurrencyConflict   = &Error{Kind: ConcurrencyConflict}
	ErrNotFound              = &Error{Kind: NotFound}
	ErrStorageFailure        = &Error{Kind: StorageFailure}
)

// New returns an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind caused by err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid is shorthand for New(InvalidInput, message).
func Invalid(message string) *Error { return New(InvalidInput, message) }

// KindOf returns the kind of the first *Error in err's chain.  Errors without
// a kind are storage failures: nothing upstream knows how to handle them.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageFailure
}

// Classified reports whether err already carries a kind.
func Classified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Message returns the client-facing message of err.  StorageFailure is always
// reported with a fixed, opaque text.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == StorageFailure {
		return "internal error"
	}
	if e.Message != "" {
		return e.Message
	}
	return err.Error()
}
