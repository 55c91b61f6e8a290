package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for ingestion failures.
var (
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrTooManyPages     = errors.New("too many pages")
	ErrTextTooLarge     = errors.New("extracted text too large")
	ErrTooManyQuestions = errors.New("too many questions")
	ErrNoQuestions      = errors.New("no questions found")
)

// ValidationError reports a violated size, page-count, or question-count
// bound. It always carries the measured value and the limit.
type ValidationError struct {
	Subject  string
	Measured int
	Limit    int
	Wrapped  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: got %d, limit %d", e.Wrapped, e.Subject, e.Measured, e.Limit)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(subject string, measured, limit int, wrapped error) *ValidationError {
	return &ValidationError{Subject: subject, Measured: measured, Limit: limit, Wrapped: wrapped}
}

// ParseError reports a malformed container: the questions payload or a
// structured document that is not valid encoded data.
type ParseError struct {
	Subject string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Subject, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeError reports a paged document whose container cannot be decoded
// (corrupted or unsupported bytes).
type DecodeError struct {
	Kind DocumentKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode %s document: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ProviderError reports a failed or timed-out embedding or completion call.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
