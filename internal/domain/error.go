package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOperationFailed   = errors.New("storage operation failed")
	ErrReadDatabaseRow   = errors.New("failed reading database row")
	ErrInternalServer    = errors.New("internal server error")
	ErrNotAllowedStatus  = errors.New("operation not allowed in current intent status")
	ErrMissingActiveFlow = errors.New("intent has no active attempt")
)

// NotFoundError reports a missing entity with its subject so callers can
// distinguish a missing intent from, say, a missing mandate.
type NotFoundError struct {
	Subject string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Subject)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NewNotFound(subject string) *NotFoundError {
	return &NotFoundError{Subject: subject}
}

// InvalidDataFormatError rejects a request field before any mutation happens.
type InvalidDataFormatError struct {
	Field          string
	ExpectedFormat string
}

func (e *InvalidDataFormatError) Error() string {
	return fmt.Sprintf("invalid value for %q, expected %s", e.Field, e.ExpectedFormat)
}

func (e *InvalidDataFormatError) Unwrap() error { return ErrInvalidArgument }

func NewInvalidDataFormat(field, expected string) *InvalidDataFormatError {
	return &InvalidDataFormatError{Field: field, ExpectedFormat: expected}
}

// MandateValidationError covers every mandate precedence/resolution failure.
type MandateValidationError struct {
	Reason string
}

func (e *MandateValidationError) Error() string {
	return fmt.Sprintf("mandate validation failed: %s", e.Reason)
}

func (e *MandateValidationError) Unwrap() error { return ErrInvalidArgument }

func NewMandateValidationFailed(reason string) *MandateValidationError {
	return &MandateValidationError{Reason: reason}
}

// NotSupportedError is the user-facing shape of a capability gap.
type NotSupportedError struct {
	Message string
}

func (e *NotSupportedError) Error() string { return e.Message }

func NewNotSupported(message string) *NotSupportedError {
	return &NotSupportedError{Message: message}
}

// IsNotFound matches both the sentinel and the typed form.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
