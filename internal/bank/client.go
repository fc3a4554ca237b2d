// Package bank talks to the Starling-style banking API: transaction feed, balances,
// accounts and savings goals.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/richxcame/roundup/pkg/config"
	"github.com/richxcame/roundup/pkg/httpclient"
	"github.com/richxcame/roundup/pkg/resilience"
)

// feedTimestampLayout is the timestamp format the feed endpoint accepts.
const feedTimestampLayout = "2006-01-02T15:04:05.000Z"

// Client calls the bank through a retrying HTTP client guarded by a circuit breaker.
type Client struct {
	http         *httpclient.Client
	breaker      *resilience.CircuitBreaker
	baseCurrency string
}

// Option configures a Client.
type Option func(*Client)

// WithRetryConfig replaces the retry policy used for every call.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		c.http.Apply(httpclient.WithRetry(cfg))
	}
}

// WithBreakerSettings replaces the circuit breaker.
func WithBreakerSettings(settings resilience.Settings) Option {
	return func(c *Client) {
		settings.IsSuccessful = breakerSuccess
		c.breaker = resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation("bank"))
	}
}

// NewClient creates a bank client authenticated with token.
func NewClient(cfg config.BankConfig, res config.ResilienceConfig, token, baseCurrency string, opts ...Option) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 500 * time.Millisecond
	retry.MaxBackoff = 5 * time.Second
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	httpClient := httpclient.NewClient(cfg.BaseURL, cfg.Timeout()).Apply(
		httpclient.WithBearerToken(token),
		httpclient.WithRetry(retry),
	)

	settings := resilience.SettingsFromConfig("bank", res)
	settings.IsSuccessful = breakerSuccess

	c := &Client{
		http:         httpClient,
		breaker:      resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation("bank")),
		baseCurrency: baseCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breaker exposes the breaker for health reporting.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

func breakerSuccess(err error) bool {
	return err == nil || isClientError(err)
}

// call runs a request through the breaker and decodes a JSON response into out.
func (c *Client) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	result, err := c.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.http.Do(ctx, method, path, body, nil)
	})
	if err != nil {
		return newAPIError(op, err)
	}

	raw, _ := result.([]byte)
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Op: op, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

func feedPath(accountID string, from, to time.Time) string {
	q := url.Values{}
	q.Set("minTransactionTimestamp", from.UTC().Format(feedTimestampLayout))
	q.Set("maxTransactionTimestamp", to.UTC().Format(feedTimestampLayout))
	return fmt.Sprintf("/api/v2/feed/account/%s/settled-transactions-between?%s", url.PathEscape(accountID), q.Encode())
}

// GetFeed returns raw settled feed items in [from, to).
func (c *Client) GetFeed(ctx context.Context, accountID string, from, to time.Time) ([]FeedItem, error) {
	var resp feedResponse
	if err := c.call(ctx, "feed", http.MethodGet, feedPath(accountID, from, to), nil, &resp); err != nil {
		return nil, err
	}
	return resp.FeedItems, nil
}

// GetAccounts lists the accounts visible to the token.
func (c *Client) GetAccounts(ctx context.Context) ([]Account, error) {
	var resp accountsResponse
	if err := c.call(ctx, "accounts", http.MethodGet, "/api/v2/accounts", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// GetEffectiveBalance returns the balance including pending transactions.
func (c *Client) GetEffectiveBalance(ctx context.Context, accountID string) (Amount, error) {
	var resp balanceResponse
	path := fmt.Sprintf("/api/v2/accounts/%s/balance", url.PathEscape(accountID))
	if err := c.call(ctx, "balance", http.MethodGet, path, nil, &resp); err != nil {
		return Amount{}, err
	}
	if resp.EffectiveBalance == nil {
		return Amount{}, &APIError{Op: "balance", Message: "response has no effectiveBalance"}
	}
	return *resp.EffectiveBalance, nil
}

// ListSavingsGoals returns every savings goal on the account.
func (c *Client) ListSavingsGoals(ctx context.Context, accountID string) ([]SavingsGoal, error) {
	var resp savingsGoalsResponse
	path := fmt.Sprintf("/api/v2/account/%s/savings-goals", url.PathEscape(accountID))
	if err := c.call(ctx, "list_goals", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.SavingsGoalList, nil
}

// CreateSavingsGoal creates a goal and returns its UID.
func (c *Client) CreateSavingsGoal(ctx context.Context, accountID string, req CreateSavingsGoalRequest) (string, error) {
	var resp createSavingsGoalResponse
	path := fmt.Sprintf("/api/v2/account/%s/savings-goals", url.PathEscape(accountID))
	if err := c.call(ctx, "create_goal", http.MethodPut, path, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success || resp.SavingsGoalUID == "" {
		return "", &APIError{Op: "create_goal", Message: "bank reported failure creating savings goal"}
	}
	return resp.SavingsGoalUID, nil
}

// AddMoney moves amount into a goal. transferUID makes the call idempotent on the bank side.
func (c *Client) AddMoney(ctx context.Context, accountID, goalID, transferUID string, amount Amount) error {
	var resp transferResponse
	path := fmt.Sprintf("/api/v2/account/%s/savings-goals/%s/add-money/%s",
		url.PathEscape(accountID), url.PathEscape(goalID), url.PathEscape(transferUID))
	if err := c.call(ctx, "add_money", http.MethodPut, path, transferRequest{Amount: amount}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return &APIError{Op: "add_money", Message: "bank reported transfer failure"}
	}
	return nil
}
