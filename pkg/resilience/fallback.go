package resilience

import (
	"context"

	"github.com/richxcame/roundup/pkg/logger"
	"go.uber.org/zap"
)

// FallbackFunc decides the result of a call the breaker refused to run.
type FallbackFunc func(ctx context.Context, err error) (interface{}, error)

// NoopFallback surfaces ErrCircuitOpen unchanged.
func NoopFallback(context.Context, error) (interface{}, error) {
	return nil, ErrCircuitOpen
}

// StaticFallback answers refused calls with value instead of an error.
func StaticFallback(value interface{}) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("upstream breaker open, serving static value", zap.Error(err))
		return value, nil
	}
}

// GracefulDegradation logs the refused call against the caller's correlation ID and
// returns ErrCircuitOpen so the caller can map it to its own failure.
func GracefulDegradation(upstream string) FallbackFunc {
	return func(ctx context.Context, err error) (interface{}, error) {
		logger.WithContext(ctx).Warn("upstream unavailable, breaker open",
			zap.String("upstream", upstream),
			zap.Error(err),
		)
		return nil, ErrCircuitOpen
	}
}
