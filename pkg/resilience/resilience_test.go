package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream failed")

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker("test", CircuitBreakerConfig{ErrorThreshold: 2, Timeout: time.Minute, SuccessThreshold: 1})
	cb.now = func() time.Time { return now }

	fail := func() error { return errUpstream }
	ok := func() error { return nil }

	require.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateClosed, cb.State())
	require.ErrorIs(t, cb.Execute(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, ok), ErrCircuitOpen)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cb := NewCircuitBreaker("test", CircuitBreakerConfig{ErrorThreshold: 1, Timeout: time.Second, SuccessThreshold: 2})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(ctx, func() error { return errUpstream })
	require.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	_ = cb.Execute(ctx, func() error { return errUpstream })
	assert.Equal(t, StateOpen, cb.State())
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, BackoffFactor: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := NewRetry("t", cfg).Execute(ctx, func() error {
			calls++
			if calls < 3 {
				return errUpstream
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := NewRetry("t", cfg).Execute(ctx, func() error {
			calls++
			return errUpstream
		})
		require.ErrorIs(t, err, errUpstream)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry cancellation", func(t *testing.T) {
		calls := 0
		err := NewRetry("t", cfg).Execute(ctx, func() error {
			calls++
			return context.Canceled
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestExecuteWithResult(t *testing.T) {
	r := NewServiceResilience("svc",
		CircuitBreakerConfig{ErrorThreshold: 5, Timeout: time.Second, SuccessThreshold: 1},
		RetryConfig{MaxAttempts: 1})

	v, err := ExecuteWithResult(context.Background(), r, "op", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	v, err = ExecuteWithResult(context.Background(), r, "op", func() (string, error) { return "partial", errUpstream })
	require.ErrorIs(t, err, errUpstream)
	assert.Empty(t, v)
}
