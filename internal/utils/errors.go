package utils

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures so callers can decide how to react
// without parsing messages.
type Kind string

const (
	KindInvalidInput         Kind = "invalid_input"
	KindContestClosed        Kind = "contest_closed"
	KindDuplicatePrediction  Kind = "duplicate_prediction"
	KindIncompleteMarketData Kind = "incomplete_market_data"
	KindUpstreamUnavailable  Kind = "upstream_unavailable"
	KindStorageFailure       Kind = "storage_failure"
	KindDataIntegrityAnomaly Kind = "data_integrity_anomaly"
	KindNotFound             Kind = "not_found"
)

// Error is the typed failure returned by the engine and its stores.
type Error struct {
	// Kind is the failure class.
	Kind Kind
	// Code optionally narrows the kind, e.g. "invalid_confidence".
	Code string
	// Message is safe to show to the caller.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message string.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, and by code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrInvalidConfidence    = &Error{Kind: KindInvalidInput, Code: "invalid_confidence", Message: "confidence level must be between 1 and 10"}
	ErrContestClosed        = &Error{Kind: KindContestClosed, Message: "contest is not open for predictions"}
	ErrDuplicatePrediction  = &Error{Kind: KindDuplicatePrediction, Message: "a prediction for this stock already exists in this contest"}
	ErrIncompleteMarketData = &Error{Kind: KindIncompleteMarketData, Message: "realized prices are missing for some stocks"}
	ErrUpstreamUnavailable  = &Error{Kind: KindUpstreamUnavailable, Message: "market data provider unavailable"}
	ErrStorageFailure       = &Error{Kind: KindStorageFailure, Message: "storage failure"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "not found"}
)

// New creates a typed error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithCode returns a copy of the error carrying the given code.
func (e *Error) WithCode(code string) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// NewValidationError creates an InvalidInput error with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error of kind KindInvalidInput.
func NewValidationError(message string) error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

// NewValidationErrorf creates an InvalidInput error with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error of kind KindInvalidInput.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of the first *Error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether repeating the same call may succeed.
// Only upstream provider failures qualify.
func IsRetryable(err error) bool {
	return KindOf(err) == KindUpstreamUnavailable
}
