package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/roundup/pkg/config"
	"github.com/richxcame/roundup/pkg/logger"
	"github.com/richxcame/roundup/pkg/resilience"
	"go.uber.org/zap"
)

// NewPostgresPool creates a new PostgreSQL connection pool. queryTimeout (seconds) becomes
// the session statement_timeout; config.DefaultDatabaseQueryTimeout is used when omitted.
func NewPostgresPool(ctx context.Context, cfg *config.DatabaseConfig, queryTimeout ...int) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.AfterConnect = createStatementTimeoutCallback(resolveQueryTimeout(queryTimeout...))

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// postgres may still be starting when the service comes up
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = 5
	retryCfg.RetryableChecker = isPostgresRetryable
	_, err = resilience.Retry(ctx, retryCfg, func(ctx context.Context) (interface{}, error) {
		return nil, pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName),
		zap.Int("max_conns", cfg.MaxConns),
	)
	return pool, nil
}

// Close closes the database connection pool
func Close(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func resolveQueryTimeout(queryTimeout ...int) int {
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		return queryTimeout[0]
	}
	return config.DefaultDatabaseQueryTimeout
}

func createStatementTimeoutCallback(seconds int) func(context.Context, *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		ms := (time.Duration(seconds) * time.Second).Milliseconds()
		_, err := conn.Exec(ctx, fmt.Sprintf("SET statement_timeout = %d", ms))
		return err
	}
}

var retryableCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"53000": true, // insufficient_resources
	"53300": true, // too_many_connections
	"53400": true, // configuration_limit_exceeded
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"58000": true, // system_error
	"XX000": true, // internal_error
}

var retryableMessages = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"timeout",
	"too many connections",
	"server closed",
	"temporary failure",
}

// isPostgresRetryable reports whether err is a transient condition worth retrying.
func isPostgresRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := pgErr.Code
		if retryableCodes[code] {
			return true
		}
		if code == "53100" || code == "53200" { // disk_full, out_of_memory
			return false
		}
		if strings.HasPrefix(code, "08") {
			return true
		}
		if strings.HasPrefix(code, "22") || strings.HasPrefix(code, "23") || strings.HasPrefix(code, "42") {
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range retryableMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
