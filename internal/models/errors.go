// ABOUTME: Typed errors for the classification taxonomy
// ABOUTME: Transient/Malformed are per chunk, Input per comment, Configuration fatal
package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the category of a classification error
type ErrorKind int

const (
	// ErrTransient is a rate limit, timeout or server error
	ErrTransient ErrorKind = iota + 1
	// ErrMalformed is model output that maps to no permitted label
	ErrMalformed
	// ErrInput is a missing, empty or unreadable comment, or a chunk the
	// provider refused to process
	ErrInput
	// ErrConfiguration invalidates the whole run
	ErrConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTransient:
		return "TRANSIENT"
	case ErrMalformed:
		return "MALFORMED"
	case ErrInput:
		return "INPUT"
	case ErrConfiguration:
		return "CONFIG"
	default:
		return "UNKNOWN"
	}
}

// Error is the base error type for classification failures
type Error struct {
	Kind    ErrorKind
	ItemID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.ItemID != "" {
		msg = fmt.Sprintf("%s: %s", e.ItemID, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewInputError reports a per-item input problem
func NewInputError(itemID, message string, cause error) *Error {
	return &Error{Kind: ErrInput, ItemID: itemID, Message: message, Cause: cause}
}

// NewConfigError reports a fatal configuration problem
func NewConfigError(format string, args ...any) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// IsKind checks if err (or anything it wraps) is an Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
