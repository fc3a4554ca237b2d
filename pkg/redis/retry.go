package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/richxcame/roundup/pkg/logger"
	"github.com/richxcame/roundup/pkg/resilience"
	"go.uber.org/zap"
)

var nonRetryableMessages = []string{
	"wrongtype",
	"err syntax",
	"err invalid",
	"noauth",
	"wrongpass",
	"noperm",
	"err unknown",
	"execabort",
}

// isRedisRetryable treats unknown errors as transient; only command and auth errors are final.
func isRedisRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, m := range nonRetryableMessages {
		if strings.Contains(msg, m) {
			return false
		}
	}
	return true
}

// ConservativeRetryConfig suits writes that hold up a request.
func ConservativeRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        1 * time.Second,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

// AggressiveRetryConfig suits cleanup calls that must eventually land.
func AggressiveRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    20 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		EnableJitter:      true,
		RetryableChecker:  isRedisRetryable,
	}
}

// RetryableOperation runs op with the given retry policy and logs the final failure.
func RetryableOperation[T any](ctx context.Context, cfg resilience.RetryConfig, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	result, err := resilience.Retry(ctx, cfg, func(ctx context.Context) (interface{}, error) {
		return op(ctx)
	})
	if err != nil {
		logger.Warn("redis operation failed",
			zap.String("operation", name),
			zap.Error(err),
		)
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}
