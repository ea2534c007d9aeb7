package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEngineError_Error tests message rendering with and without a cause
func TestEngineError_Error(t *testing.T) {
	bare := New(KindInvalidFrame, "frame", "new", "empty bar series")
	assert.Equal(t, "[INVALID_FRAME:frame] new: empty bar series", bare.Error())

	wrapped := Wrap(os.ErrNotExist, KindDataUnavailable, "data", "fetch")
	assert.Contains(t, wrapped.Error(), "DATA_UNAVAILABLE")
	assert.Contains(t, wrapped.Error(), os.ErrNotExist.Error())
}

// TestWrap_NilPassthrough tests that wrapping nil stays nil
func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindDataUnavailable, "data", "fetch"))
}

// TestKindOf tests kind extraction through wrapping layers
func TestKindOf(t *testing.T) {
	err := New(KindUnknownStrategy, "registry", "get", "no such strategy")
	assert.Equal(t, KindUnknownStrategy, KindOf(err))

	// Through fmt wrapping.
	deep := fmt.Errorf("scheduler run: %w", err)
	assert.Equal(t, KindUnknownStrategy, KindOf(deep))

	// Plain errors have no kind.
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

// TestIsRetryable tests that only data unavailability drives retries
func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(KindDataUnavailable, "data", "fetch", "timeout")))

	for _, kind := range []Kind{
		KindInvalidFrame, KindUnknownIndicator, KindUnknownStrategy,
		KindParameterValidation, KindInsufficientHistory,
		KindStrategyInternal, KindPersistenceFailure,
	} {
		assert.False(t, IsRetryable(New(kind, "c", "op", "m")), "kind %s must not retry", kind)
	}
	assert.False(t, IsRetryable(errors.New("plain")))
}

// TestUnwrap tests errors.Is through the chain
func TestUnwrap(t *testing.T) {
	err := Wrap(os.ErrNotExist, KindDataUnavailable, "data", "fetch")
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var ee *EngineError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &ee))
	assert.Equal(t, "data", ee.Component)
	assert.Equal(t, "fetch", ee.Op)
}
