package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies failures so callers can decide on retry and
// alerting policy without string matching.
type ErrorCategory string

const (
	// Errors that should stop the session.
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryCredentials   ErrorCategory = "CREDENTIALS"

	// Venue-side failures. Never retried inside the core: a blind retry
	// of an order placement risks a duplicate fill.
	ErrorCategoryExchange ErrorCategory = "EXCHANGE"

	// Local record-keeping failed after the exchange action succeeded.
	// The exchange-side effect always takes precedence over the record.
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"

	// Risk rules declined the trade. Expected and frequent; only wrapped
	// into an error at the service boundary.
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	ErrorCategoryNetwork ErrorCategory = "NETWORK"
	ErrorCategoryTimeout ErrorCategory = "TIMEOUT"
)

// AssistantError is a categorized error with component/operation context.
type AssistantError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AssistantError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

func (e *AssistantError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the caller may reasonably retry the operation.
func (e *AssistantError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal reports whether the error should stop the trading session.
func (e *AssistantError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration || e.Category == ErrorCategoryCredentials
}

// NewValidationError reports a risk rejection surfaced as an error. The
// rejection reason is preserved verbatim in Message.
func NewValidationError(component, operation, reason string) *AssistantError {
	return &AssistantError{
		Category:  ErrorCategoryValidation,
		Component: component,
		Operation: operation,
		Message:   reason,
		Retryable: false,
	}
}

// NewConfigurationError reports malformed configuration. Always fatal.
func NewConfigurationError(component, operation, message string) *AssistantError {
	return &AssistantError{
		Category:  ErrorCategoryConfiguration,
		Component: component,
		Operation: operation,
		Message:   message,
		Retryable: false,
	}
}

// NewExchangeError wraps a failed venue call with order context.
func NewExchangeError(component, operation string, err error) *AssistantError {
	return &AssistantError{
		Category:   ErrorCategoryExchange,
		Component:  component,
		Operation:  operation,
		Message:    "exchange call failed",
		Underlying: err,
		Retryable:  false,
	}
}

// NewPersistenceError wraps a failed save of an order or trade record.
func NewPersistenceError(component, operation string, err error) *AssistantError {
	return &AssistantError{
		Category:   ErrorCategoryPersistence,
		Component:  component,
		Operation:  operation,
		Message:    "failed to persist record",
		Underlying: err,
		Retryable:  true,
	}
}

// IsValidation reports whether err is (or wraps) a risk validation rejection.
func IsValidation(err error) bool {
	var ae *AssistantError
	return errors.As(err, &ae) && ae.Category == ErrorCategoryValidation
}

// IsPersistence reports whether err is (or wraps) a persistence failure.
func IsPersistence(err error) bool {
	var ae *AssistantError
	return errors.As(err, &ae) && ae.Category == ErrorCategoryPersistence
}
