package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(99), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestClassifiedError_Error(t *testing.T) {
	ce := &ClassifiedError{
		Class:   ErrorInvalid,
		Err:     ErrMissingRequiredField,
		Message: "entity.NewFollow: validation failed",
	}
	assert.Equal(t, "entity.NewFollow: validation failed", ce.Error())

	// Without message, falls back to wrapped error
	ce2 := &ClassifiedError{Class: ErrorInvalid, Err: ErrMissingRequiredField}
	assert.Equal(t, "missing required field", ce2.Error())
}

func TestWrapInvalid(t *testing.T) {
	err := WrapInvalid(ErrMissingRequiredField, "entity", "NewFollow", "validation")
	require.Error(t, err)

	assert.True(t, Is(err, ErrMissingRequiredField))
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.Error(), "entity.NewFollow: validation failed")
}

func TestWrap_NilError(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestResolutionSubkinds(t *testing.T) {
	subkinds := []error{ErrResolutionNetwork, ErrResolutionNotFound, ErrResolutionMalformed}

	for _, err := range subkinds {
		assert.True(t, IsResolution(err), err.Error())
		assert.True(t, Is(err, ErrActorResolution))
	}

	// Subkinds survive wrapping
	wrapped := WrapTransient(ErrResolutionNetwork, "resolver", "RetrieveProfile", "fetch")
	assert.True(t, IsResolution(wrapped))
	assert.True(t, Is(wrapped, ErrResolutionNetwork))
	assert.False(t, Is(wrapped, ErrResolutionNotFound))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrResolutionNetwork))
	assert.True(t, IsTransient(ErrDeliveryFailed))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(ErrSignatureInvalid))
	assert.False(t, IsTransient(nil))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrSignatureInvalid))
	assert.True(t, IsFatal(fmt.Errorf("verify: %w", ErrSignatureInvalid)))
	assert.False(t, IsFatal(ErrUnsupportedActivityType))
	assert.False(t, IsFatal(nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"signature", ErrSignatureInvalid, ErrorFatal},
		{"unsupported type", ErrUnsupportedActivityType, ErrorInvalid},
		{"malformed", ErrMalformedDocument, ErrorInvalid},
		{"network resolution", ErrResolutionNetwork, ErrorTransient},
		{"unknown", New("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, Classify(test.err))
		})
	}
}

func TestClassificationOverridesSentinel(t *testing.T) {
	// A classified wrapper takes precedence over sentinel-based inference.
	err := WrapFatal(ErrMalformedDocument, "adapter", "FromWire", "parse")
	assert.True(t, IsFatal(err))
	assert.False(t, IsInvalid(err))
}
