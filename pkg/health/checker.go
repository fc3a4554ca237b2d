package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Checker reports the health of one dependency.
type Checker func() error

// CheckerConfig configures dependency probes.
type CheckerConfig struct {
	Timeout time.Duration
}

// DefaultCheckerConfig returns the default probe configuration.
func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{Timeout: 2 * time.Second}
}

// Pinger is satisfied by *pgxpool.Pool and anything else with a context-aware Ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker returns a health check function for PostgreSQL
func DatabaseChecker(db Pinger) Checker {
	return DatabaseCheckerWithConfig(db, DefaultCheckerConfig())
}

// DatabaseCheckerWithConfig is DatabaseChecker with a custom timeout.
func DatabaseCheckerWithConfig(db Pinger, cfg CheckerConfig) Checker {
	return func() error {
		if db == nil {
			return errors.New("database not configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()
		return db.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(ping func(ctx context.Context) error) Checker {
	return func() error {
		if ping == nil {
			return errors.New("redis not configured")
		}
		ctx, cancel := context.WithTimeout(context.Background(), DefaultCheckerConfig().Timeout)
		defer cancel()
		return ping(ctx)
	}
}

// HTTPEndpointChecker probes an HTTP dependency such as the bank API.
func HTTPEndpointChecker(url string) Checker {
	return HTTPEndpointCheckerWithConfig(url, DefaultCheckerConfig())
}

// HTTPEndpointCheckerWithConfig is HTTPEndpointChecker with a custom timeout.
// Any status below 500 counts as reachable.
func HTTPEndpointCheckerWithConfig(url string, cfg CheckerConfig) Checker {
	client := &http.Client{Timeout: cfg.Timeout}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
		}
		return nil
	}
}

// CompositeChecker fails if any of the named checkers fail.
func CompositeChecker(name string, checkers map[string]Checker) Checker {
	return func() error {
		var failures []string
		for dep, check := range checkers {
			if err := check(); err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", dep, err))
			}
		}
		if len(failures) > 0 {
			return fmt.Errorf("%s unhealthy: %s", name, strings.Join(failures, "; "))
		}
		return nil
	}
}
