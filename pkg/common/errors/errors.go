package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the cronflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCapacityExceeded indicates that a capacity limit was exceeded
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Schedule configuration errors. Each of these is also reported as
// ErrInvalidConfiguration by errors.Is when carried in a ValidationError.
var (
	// ErrInvalidCronExpression indicates a malformed, out-of-range or
	// calendar-unsatisfiable cron expression.
	ErrInvalidCronExpression = errors.New("invalid cron expression")

	// ErrFixedDelayAndRateAreExclusive indicates a trigger that sets more
	// than one of cron, fixed rate and fixed delay.
	ErrFixedDelayAndRateAreExclusive = errors.New("fixed delay and fixed rate are mutually exclusive")

	// ErrInvalidFixedDelay indicates a non-positive fixed delay period.
	ErrInvalidFixedDelay = errors.New("invalid fixed delay")

	// ErrInvalidFixedRate indicates a non-positive fixed rate period.
	ErrInvalidFixedRate = errors.New("invalid fixed rate")

	// ErrInvalidInitialDelay indicates a negative initial delay.
	ErrInvalidInitialDelay = errors.New("invalid initial delay")
)

var configurationErrors = []error{
	ErrInvalidConfiguration,
	ErrInvalidCronExpression,
	ErrFixedDelayAndRateAreExclusive,
	ErrInvalidFixedDelay,
	ErrInvalidFixedRate,
	ErrInvalidInitialDelay,
}

// ValidationError describes a rejected configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string

	// Kind is the sentinel reported by Unwrap. Nil means ErrInvalidConfiguration.
	Kind error
}

// NewValidationError creates a ValidationError of kind ErrInvalidConfiguration.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns the sentinel kind of the error.
func (e *ValidationError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrInvalidConfiguration
}

// Is makes every ValidationError match ErrInvalidConfiguration.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// WithHint sets a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

// WithKind sets the sentinel kind and returns the same error for chaining.
func (e *ValidationError) WithKind(kind error) *ValidationError {
	e.Kind = kind
	return e
}

// OperationError describes a failed runtime operation.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// WithContext adds detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

// IsRetryable returns true if the error indicates a condition that might
// be resolved by retrying the operation, such as a busy worker pool.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCapacityExceeded)
}

// IsValidationError reports whether err contains a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsConfigurationError reports whether err is a startup configuration
// error: a rejected schedule, trigger or manager setting.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	for _, sentinel := range configurationErrors {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
