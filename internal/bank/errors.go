package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/richxcame/roundup/pkg/httpclient"
	"github.com/richxcame/roundup/pkg/resilience"
)

// APIError is a failed call to the bank. StatusCode is 0 for transport failures.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("bank %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bank %s: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// newAPIError converts transport and HTTP failures into an APIError.
func newAPIError(op string, err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return &APIError{
			Op:         op,
			StatusCode: httpErr.StatusCode,
			Message:    errorMessage(httpErr.StatusCode, httpErr.Body),
			Err:        err,
		}
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &APIError{Op: op, StatusCode: http.StatusServiceUnavailable, Message: "circuit open", Err: err}
	}
	return &APIError{Op: op, Message: err.Error(), Err: err}
}

// errorMessage joins the messages of an error body, falling back to the status text.
func errorMessage(status int, body string) string {
	var parsed errorBody
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		var msgs []string
		for _, e := range parsed.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, " | ")
		}
		if parsed.ErrorDescription != "" {
			return parsed.ErrorDescription
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unexpected response"
}

// IsTransient reports whether err is worth retrying: transport failures, 5xx, 408 and 429.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 0 {
			return true
		}
		return resilience.IsRetryableHTTPStatus(apiErr.StatusCode)
	}
	return httpclient.IsRetryable(err)
}

// isClientError is true for 4xx responses, which should not trip the breaker.
func isClientError(err error) bool {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 &&
			!resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return false
}
