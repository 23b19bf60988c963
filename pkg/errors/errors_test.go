package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeServer, "server error (503)")
	assert.Equal(t, "server: server error (503)", err.Error())

	wrapped := Wrap(stderrors.New("boom"), ErrorTypeState, "failed to commit bookmark")
	assert.Equal(t, "state: failed to commit bookmark: boom", wrapped.Error())
	assert.Equal(t, "boom", wrapped.Unwrap().Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "nothing"))
}

func TestIsTypeSeesThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeRateLimit, "rate limited (429)")
	outer := fmt.Errorf("fetch page: %w", inner)

	assert.True(t, IsType(outer, ErrorTypeRateLimit))
	assert.True(t, IsRateLimit(outer))
	assert.False(t, IsType(outer, ErrorTypeServer))
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsTransient(New(ErrorTypeServer, "x")))
	assert.True(t, IsTransient(New(ErrorTypeDecode, "x")))
	assert.False(t, IsTransient(New(ErrorTypeRateLimit, "x")))

	assert.True(t, IsFatal(New(ErrorTypeClient, "x")))
	assert.True(t, IsFatal(New(ErrorTypeOutOfOrder, "x")))
	assert.False(t, IsFatal(New(ErrorTypeServer, "x")))
	assert.False(t, IsFatal(nil))
}

func TestRetryAfterOf(t *testing.T) {
	err := New(ErrorTypeRateLimit, "rate limited (429)").
		WithDetail("retry_after", 3*time.Second)

	wait, ok := RetryAfterOf(err)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, wait)

	_, ok = RetryAfterOf(New(ErrorTypeRateLimit, "rate limited (429)"))
	assert.False(t, ok)

	_, ok = RetryAfterOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestHTTPStatusOf(t *testing.T) {
	err := New(ErrorTypeServer, "server error (502)").WithDetail("http_status", 502)
	code, ok := HTTPStatusOf(err)
	require.True(t, ok)
	assert.Equal(t, 502, code)
}

func TestStackCaptured(t *testing.T) {
	err := New(ErrorTypeInternal, "x")
	assert.NotEmpty(t, err.Stack)
}
