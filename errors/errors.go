// Package errors provides standardized error handling for the federation
// core. It defines the error taxonomy shared by the entity model, the
// protocol adapters and the lifecycle pipeline: classification into
// invalid/transient/fatal, sentinel variables for every failure mode the
// callers dispatch on, and helpers for consistent wrapping.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes.
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or documents.
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that must drop the message.
	ErrorFatal
)

// String returns the string representation of ErrorClass.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for the federation taxonomy.
var (
	// Entity construction errors. Caller bugs, never retried.
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidIdentifier    = errors.New("invalid identifier")

	// Inbound parse errors. Recoverable: the caller should skip the
	// message and keep consuming the inbound stream.
	ErrUnsupportedActivityType = errors.New("unsupported activity type")
	ErrMalformedDocument       = errors.New("malformed document")

	// Security errors. Always fatal to the message; the document must be
	// dropped before it reaches the receive pipeline.
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrMissingPublicKey = errors.New("no public key for actor")

	// Actor resolution errors. The three subkinds are handled identically
	// by callers (abort) but kept distinct for observability.
	ErrActorResolution     = errors.New("actor resolution failed")
	ErrResolutionNetwork   = fmt.Errorf("%w: network", ErrActorResolution)
	ErrResolutionNotFound  = fmt.Errorf("%w: not found", ErrActorResolution)
	ErrResolutionMalformed = fmt.Errorf("%w: malformed response", ErrActorResolution)

	// Delivery errors. Reported on the warning channel after a Follow is
	// already accepted; never roll back acceptance.
	ErrDeliveryFailed = errors.New("delivery failed")

	// Enrichment errors. Degrade to omitted optional fields.
	ErrProbeFailed = errors.New("content type probe failed")
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	return errors.Is(err, ErrResolutionNetwork) ||
		errors.Is(err, ErrDeliveryFailed) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsFatal checks if an error must drop the message without retry.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrSignatureInvalid)
}

// IsInvalid checks if an error is due to invalid input or documents.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidIdentifier) ||
		errors.Is(err, ErrUnsupportedActivityType) ||
		errors.Is(err, ErrMalformedDocument)
}

// IsResolution checks if an error is an actor resolution failure of any
// subkind.
func IsResolution(err error) bool {
	return errors.Is(err, ErrActorResolution)
}

// Classify returns the error class for an error. Unknown errors default to
// transient so callers err on the side of retrying.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	if IsFatal(err) {
		return ErrorFatal
	}
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorTransient
}

// newClassified creates a new classified error.
// Internal helper - use WrapTransient(), WrapFatal(), or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Is reports whether any error in err's tree matches target.
// Re-exported so callers do not need a second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
