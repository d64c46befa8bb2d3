// Package errors provides standardized error types for the domain layer.
// These errors provide consistent error handling across all services
// and enable proper error categorization for HTTP responses.
package errors

import (
	"errors"
	"fmt"
)

// Standard error categories
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input was provided
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")
)

// Domain errors
var (
	// ErrStrategyNotFound indicates no strategy is registered for a bot type.
	// This is a configuration error: it means a deployment bug, is surfaced
	// immediately and is never retried.
	ErrStrategyNotFound = errors.New("no strategy registered for bot type")

	// ErrInsufficientBalance indicates the smart wallet does not hold the
	// requested deposit amount. User-facing, not retried.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrNotImplemented indicates an operation a partially-featured strategy
	// does not support. Always a hard error, never a silent success.
	ErrNotImplemented = errors.New("operation not implemented for this strategy")

	// ErrBindingNotFound indicates the bot binding does not exist
	ErrBindingNotFound = errors.New("bot binding not found")

	// ErrUserNotFound indicates the user does not exist
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidPercentage indicates a withdrawal percentage outside 1-100
	ErrInvalidPercentage = errors.New("withdrawal percentage must be between 1 and 100")

	// ErrBatchSubmissionFailed indicates the account-abstraction provider
	// rejected the batch or returned no transaction hash
	ErrBatchSubmissionFailed = errors.New("batch submission failed")
)

// StrategyNotFound wraps ErrStrategyNotFound with the offending bot type
func StrategyNotFound(botType string) error {
	return fmt.Errorf("%w: %s", ErrStrategyNotFound, botType)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBindingNotFound) ||
		errors.Is(err, ErrUserNotFound)
}
