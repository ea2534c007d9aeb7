package errors

import (
	"errors"
	"fmt"
)

// Kind classifies engine failures for propagation and retry decisions.
type Kind string

const (
	// Fatal to the current call, never retried
	KindInvalidFrame        Kind = "INVALID_FRAME"
	KindUnknownIndicator    Kind = "UNKNOWN_INDICATOR"
	KindUnknownStrategy     Kind = "UNKNOWN_STRATEGY"
	KindParameterValidation Kind = "PARAMETER_VALIDATION"

	// Degraded but recoverable
	KindInsufficientHistory Kind = "INSUFFICIENT_HISTORY"
	KindStrategyInternal    Kind = "STRATEGY_INTERNAL"
	KindPersistenceFailure  Kind = "PERSISTENCE_FAILURE"

	// Retriable; drives scheduler backoff
	KindDataUnavailable Kind = "DATA_UNAVAILABLE"
)

// EngineError is a categorized error with component context.
type EngineError struct {
	Kind       Kind
	Component  string
	Op         string
	Message    string
	Underlying error
}

func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Kind, e.Component, e.Op, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Component, e.Op, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Retryable reports whether the scheduler may retry the failed operation.
func (e *EngineError) Retryable() bool {
	return e.Kind == KindDataUnavailable
}

// New creates a categorized engine error.
func New(kind Kind, component, op, message string) *EngineError {
	return &EngineError{Kind: kind, Component: component, Op: op, Message: message}
}

// Wrap attaches kind and context to an existing error.
func Wrap(err error, kind Kind, component, op string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{Kind: kind, Component: component, Op: op, Message: "operation failed", Underlying: err}
}

// KindOf extracts the Kind from an error chain, or "" if it is not an EngineError.
func KindOf(err error) Kind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsRetryable reports whether an error chain contains a retriable engine error.
func IsRetryable(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Retryable()
	}
	return false
}
