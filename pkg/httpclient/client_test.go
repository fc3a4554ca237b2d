package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richxcame/roundup/pkg/logger"
	"github.com/richxcame/roundup/pkg/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient("https://api.example.com")
	assert.Equal(t, "https://api.example.com", c.baseURL)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)

	c = NewClient("https://api.example.com", 0)
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)

	c = NewClient("https://api.example.com", 5*time.Second, 20*time.Second)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestWithRetry_DefaultsChecker(t *testing.T) {
	c := NewClient("https://api.example.com").Apply(WithRetry(fastRetry(3)))
	require.NotNil(t, c.retryConfig)
	assert.Equal(t, 3, c.retryConfig.MaxAttempts)
	assert.NotNil(t, c.retryConfig.RetryableChecker)

	c = NewClient("https://api.example.com").Apply(WithDefaultRetry())
	require.NotNil(t, c.retryConfig)
	assert.NotNil(t, c.retryConfig.RetryableChecker)
}

func TestClient_Get(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
	}{
		{name: "ok", status: http.StatusOK, body: `{"message":"success"}`},
		{name: "no content", status: http.StatusNoContent},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"not found"}`, wantErr: true, wantStatus: 404},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true, wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			body, err := NewClient(server.URL).Get(context.Background(), "/test", nil)

			if tt.wantErr {
				var httpErr *HTTPError
				require.True(t, errors.As(err, &httpErr))
				assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
				assert.Equal(t, tt.body, httpErr.Body)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestClient_HeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		assert.Equal(t, "v", r.Header.Get("X-Custom"))

		var payload map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 51, payload["minorUnits"])

		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c := NewClient(server.URL).Apply(WithBearerToken("secret"))
	ctx := logger.ContextWithCorrelationID(context.Background(), "req-42")

	body, err := c.Put(ctx, "/transfer", map[string]int{"minorUnits": 51}, map[string]string{"X-Custom": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(body))
}

func TestClient_PostWithIdempotency(t *testing.T) {
	var received []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = append(received, r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	headers := map[string]string{"Authorization": "Bearer token"}

	_, err := c.PostWithIdempotency(context.Background(), "/test", nil, headers, "key-123")
	require.NoError(t, err)
	_, err = c.PostWithIdempotency(context.Background(), "/test", nil, headers, "")
	require.NoError(t, err)

	require.Len(t, received, 2)
	assert.Equal(t, "key-123", received[0])
	assert.NotEmpty(t, received[1])
	_, hasKey := headers["Idempotency-Key"]
	assert.False(t, hasKey, "caller headers must not be mutated")
}

func TestHTTPError(t *testing.T) {
	assert.Equal(t, "HTTP 404: not found", (&HTTPError{StatusCode: 404, Body: "not found"}).Error())
	assert.Equal(t, "HTTP 503: ", (&HTTPError{StatusCode: 503}).Error())
}

func TestIsHTTPRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"500", &HTTPError{StatusCode: 500}, true},
		{"503", &HTTPError{StatusCode: 503}, true},
		{"429", &HTTPError{StatusCode: 429}, true},
		{"400", &HTTPError{StatusCode: 400}, false},
		{"401", &HTTPError{StatusCode: 401}, false},
		{"404", &HTTPError{StatusCode: 404}, false},
		{"transport error", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isHTTPRetryable(tt.err))
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	c := NewClient(server.URL).Apply(WithRetry(fastRetry(5)))
	body, err := c.Get(context.Background(), "/retry", nil)

	require.NoError(t, err)
	assert.Contains(t, string(body), "success")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL).Apply(WithRetry(fastRetry(5)))
	_, err := c.Get(context.Background(), "/forbidden", nil)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL, 10*time.Second).Get(ctx, "/slow", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "context") || errors.Is(err, context.DeadlineExceeded))
}

func TestClient_LargeResponse(t *testing.T) {
	large := strings.Repeat("a", 1024*1024)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, large)
	}))
	defer server.Close()

	body, err := NewClient(server.URL).Get(context.Background(), "/large", nil)
	require.NoError(t, err)
	assert.Len(t, body, len(large))
}
