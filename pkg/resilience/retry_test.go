package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUpstream     = errors.New("upstream unavailable")
	errRetryable    = errors.New("retryable error")
	errNonRetryable = errors.New("non-retryable error")
)

func fastConfig(attempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxAttempts = attempts
	return cfg
}

func countingOp(failures int, err error) (Operation, *int) {
	calls := 0
	return func(ctx context.Context) (interface{}, error) {
		calls++
		if calls <= failures {
			return nil, err
		}
		return "ok", nil
	}, &calls
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name      string
		config    RetryConfig
		failures  int
		err       error
		wantErr   error
		wantCalls int
	}{
		{name: "first attempt succeeds", config: fastConfig(3), failures: 0, wantCalls: 1},
		{name: "succeeds after retries", config: fastConfig(3), failures: 2, err: errUpstream, wantCalls: 3},
		{name: "gives up after max attempts", config: fastConfig(3), failures: 10, err: errUpstream, wantErr: errUpstream, wantCalls: 3},
		{name: "zero attempts still runs once", config: fastConfig(0), failures: 0, wantCalls: 1},
		{name: "circuit open is not retried", config: fastConfig(3), failures: 10, err: ErrCircuitOpen, wantErr: ErrCircuitOpen, wantCalls: 1},
		{name: "cancellation is not retried", config: fastConfig(3), failures: 10, err: context.Canceled, wantErr: context.Canceled, wantCalls: 1},
		{
			name: "allow list rejects unknown error",
			config: func() RetryConfig {
				c := fastConfig(3)
				c.RetryableErrors = []error{errRetryable}
				return c
			}(),
			failures: 10, err: errNonRetryable, wantErr: errNonRetryable, wantCalls: 1,
		},
		{
			name: "allow list matches wrapped error",
			config: func() RetryConfig {
				c := fastConfig(3)
				c.RetryableErrors = []error{errRetryable}
				return c
			}(),
			failures: 10, err: fmt.Errorf("call: %w", errRetryable), wantCalls: 3,
		},
		{
			name: "checker wins over allow list",
			config: func() RetryConfig {
				c := fastConfig(2)
				c.RetryableErrors = []error{errRetryable}
				c.RetryableChecker = func(err error) bool { return errors.Is(err, errNonRetryable) }
				return c
			}(),
			failures: 1, err: errNonRetryable, wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, calls := countingOp(tt.failures, tt.err)

			result, err := Retry(context.Background(), tt.config, op)

			assert.Equal(t, tt.wantCalls, *calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			if tt.failures >= tt.wantCalls {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result)
		})
	}
}

func TestRetry_ContextDeadlineDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = 100 * time.Millisecond
	cfg.EnableJitter = false
	cfg.MaxAttempts = 5
	op, calls := countingOp(10, errUpstream)

	_, err := Retry(ctx, cfg, op)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, *calls, 5)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}

	expected := map[int]time.Duration{
		1:  time.Second,
		2:  2 * time.Second,
		3:  4 * time.Second,
		5:  16 * time.Second,
		6:  30 * time.Second,
		10: 30 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, calculateBackoff(attempt, cfg), "attempt %d", attempt)
	}

	cfg.EnableJitter = true
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, calculateBackoff(3, cfg), 4*time.Second)
	}
}

func TestAddJitter(t *testing.T) {
	assert.Equal(t, time.Duration(0), addJitter(0))

	seen := make(map[time.Duration]bool)
	for i := 0; i < 10; i++ {
		j := addJitter(10 * time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 10*time.Second)
		seen[j] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestRetryPresets(t *testing.T) {
	d := DefaultRetryConfig()
	assert.Equal(t, 3, d.MaxAttempts)
	assert.Equal(t, 30*time.Second, d.MaxBackoff)

	a := AggressiveRetryConfig()
	assert.Equal(t, 5, a.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, a.InitialBackoff)

	c := ConservativeRetryConfig()
	assert.Equal(t, 2, c.MaxAttempts)
	assert.Equal(t, 10*time.Second, c.MaxBackoff)
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409, 422} {
		assert.False(t, IsRetryableHTTPStatus(code), "status %d", code)
	}
}

func TestShouldRetry_NilError(t *testing.T) {
	assert.False(t, shouldRetry(nil, DefaultRetryConfig()))
}
