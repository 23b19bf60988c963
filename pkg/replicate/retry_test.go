package replicate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tideflow-io/tideflow/pkg/config"
	"github.com/tideflow-io/tideflow/pkg/errors"
	"github.com/tideflow-io/tideflow/pkg/testutil"
)

func testRetryPolicy(t *testing.T, sleeps *[]time.Duration) *RetryPolicy {
	t.Helper()
	p := NewRetryPolicy(config.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     1 * time.Minute,
		Multiplier:   2.0,
	}, "orders", testutil.Logger(t))
	p.sleep = func(_ context.Context, d time.Duration) error {
		*sleeps = append(*sleeps, d)
		return nil
	}
	return p
}

func rateLimitErr(retryAfter time.Duration) error {
	return errors.New(errors.ErrorTypeRateLimit, "rate limited (429)").
		WithDetail("retry_after", retryAfter)
}

func serverErr() error {
	return errors.New(errors.ErrorTypeServer, "server error (503)").
		WithDetail("http_status", 503)
}

func TestRetryRateLimitSleepsServerDictatedWait(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		if calls == 1 {
			return rateLimitErr(3 * time.Second)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls, "exactly one retry of the same request")
	assert.Equal(t, []time.Duration{3 * time.Second}, sleeps)
}

func TestRetryRateLimitDefaultWait(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New(errors.ErrorTypeRateLimit, "rate limited (429)")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{defaultRetryAfter}, sleeps)
}

func TestRetryRateLimitDoesNotCountAgainstBudget(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		if calls <= 10 {
			return rateLimitErr(1 * time.Second)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 11, calls)
}

func TestRetryFifthServerErrorExhausts(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		return serverErr()
	})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRetryExhausted))
	assert.Equal(t, 5, calls)
	// backoff between the 5 attempts: 1s, 2s, 4s, 8s
	assert.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	}, sleeps)
}

func TestRetryFourthServerErrorDoesNotExhaust(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		if calls <= 4 {
			return serverErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, calls)
}

func TestRetryDecodeErrorIsTransient(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New(errors.ErrorTypeDecode, "truncated body")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryFatalErrorNotRetried(t *testing.T) {
	var sleeps []time.Duration
	p := testRetryPolicy(t, &sleeps)

	calls := 0
	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		calls++
		return errors.New(errors.ErrorTypeClient, "client error (401)")
	})

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeClient))
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps)
}

func TestRetryBackoffCappedAtMaxDelay(t *testing.T) {
	var sleeps []time.Duration
	p := NewRetryPolicy(config.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 2 * time.Second,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
	}, "orders", testutil.Logger(t))
	p.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	err := p.Execute(context.Background(), "fetch page", func(context.Context) error {
		return serverErr()
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second,
	}, sleeps)
}

func TestRetryCancelledDuringWait(t *testing.T) {
	p := NewRetryPolicy(config.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     1 * time.Minute,
		Multiplier:   2.0,
	}, "orders", testutil.Logger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Execute(ctx, "fetch page", func(context.Context) error {
		return serverErr()
	})
	require.ErrorIs(t, err, context.Canceled)
}
