package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/roundup/pkg/logger"
	"github.com/richxcame/roundup/pkg/resilience"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a small JSON-over-HTTP client with optional retries.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
	headers     map[string]string
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a client for baseURL. The first timeout given wins; zero means the default.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := defaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: t},
		headers:    map[string]string{},
	}
}

// WithRetry enables retries with cfg. Without a checker only transient failures are retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		if cfg.RetryableChecker == nil {
			cfg.RetryableChecker = isHTTPRetryable
		}
		c.retryConfig = &cfg
	}
}

// WithDefaultRetry enables retries with the default backoff policy.
func WithDefaultRetry() Option {
	return WithRetry(resilience.DefaultRetryConfig())
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithBearerToken authenticates every request with token.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// Apply applies options after construction.
func (c *Client) Apply(opts ...Option) *Client {
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil, headers)
}

// Post performs a POST request with a JSON body
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, body, headers)
}

// Put performs a PUT request with a JSON body
func (c *Client) Put(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, body, headers)
}

// PostWithIdempotency performs a POST with an Idempotency-Key header, generating one if key is empty.
func (c *Client) PostWithIdempotency(ctx context.Context, path string, body interface{}, headers map[string]string, key string) ([]byte, error) {
	if key == "" {
		key = uuid.New().String()
	}
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Idempotency-Key"] = key
	return c.Post(ctx, path, body, merged)
}

// Do sends a request, retrying transient failures when retries are enabled.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	if c.retryConfig == nil {
		return c.do(ctx, method, path, payload, headers)
	}

	result, err := resilience.Retry(ctx, *c.retryConfig, func(ctx context.Context) (interface{}, error) {
		return c.do(ctx, method, path, payload, headers)
	})
	if err != nil {
		return nil, err
	}
	respBody, _ := result.([]byte)
	return respBody, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	logger.Debug("http request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// isHTTPRetryable retries 5xx, 408 and 429 responses and any transport error.
func isHTTPRetryable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return true
}

// IsRetryable exposes the client's retry classification to callers.
func IsRetryable(err error) bool {
	return isHTTPRetryable(err)
}
