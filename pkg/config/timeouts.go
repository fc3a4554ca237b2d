package config

import "time"

// Default timeouts in seconds.
const (
	DefaultRedisReadTimeout      = 3
	DefaultRedisWriteTimeout     = 3
	DefaultRedisOperationTimeout = 5
	DefaultDatabaseQueryTimeout  = 10
)

// TimeoutConfig holds timeouts for infrastructure calls, in seconds.
type TimeoutConfig struct {
	RedisReadTimeout      int
	RedisWriteTimeout     int
	RedisOperationTimeout int
	DatabaseQueryTimeout  int
}

// DefaultRedisReadTimeoutDuration returns the default Redis read timeout.
func DefaultRedisReadTimeoutDuration() time.Duration {
	return time.Duration(DefaultRedisReadTimeout) * time.Second
}

// DefaultRedisWriteTimeoutDuration returns the default Redis write timeout.
func DefaultRedisWriteTimeoutDuration() time.Duration {
	return time.Duration(DefaultRedisWriteTimeout) * time.Second
}

// RedisReadTimeoutDuration falls back to the operation timeout, then the default.
func (t TimeoutConfig) RedisReadTimeoutDuration() time.Duration {
	switch {
	case t.RedisReadTimeout > 0:
		return time.Duration(t.RedisReadTimeout) * time.Second
	case t.RedisOperationTimeout > 0:
		return time.Duration(t.RedisOperationTimeout) * time.Second
	default:
		return DefaultRedisReadTimeoutDuration()
	}
}

// RedisWriteTimeoutDuration falls back to the operation timeout, then the default.
func (t TimeoutConfig) RedisWriteTimeoutDuration() time.Duration {
	switch {
	case t.RedisWriteTimeout > 0:
		return time.Duration(t.RedisWriteTimeout) * time.Second
	case t.RedisOperationTimeout > 0:
		return time.Duration(t.RedisOperationTimeout) * time.Second
	default:
		return DefaultRedisWriteTimeoutDuration()
	}
}

// DatabaseQueryTimeoutDuration returns the per-query database timeout.
func (t TimeoutConfig) DatabaseQueryTimeoutDuration() time.Duration {
	if t.DatabaseQueryTimeout > 0 {
		return time.Duration(t.DatabaseQueryTimeout) * time.Second
	}
	return time.Duration(DefaultDatabaseQueryTimeout) * time.Second
}
