package roundup

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/pkg/eventbus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// testify mocks
// ============================================================================

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Find(ctx context.Context, accountID string, week time.Time) (*Request, error) {
	args := m.Called(ctx, accountID, week)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockLedger) Save(ctx context.Context, req *Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockLedger) UpdateStatusAndAmount(ctx context.Context, accountID string, week time.Time, status Status, amount int64) error {
	args := m.Called(ctx, accountID, week, status, amount)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) TryAcquire(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLocker) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Submit(job Job) error {
	args := m.Called(job)
	return args.Error(0)
}

type MockTransactionSource struct {
	mock.Mock
}

func (m *MockTransactionSource) FetchSettledTransactions(ctx context.Context, accountID string, from, to time.Time) ([]Transaction, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Transaction), args.Error(1)
}

type MockBalanceSource struct {
	mock.Mock
}

func (m *MockBalanceSource) GetAvailableBalance(ctx context.Context, accountID string) (currency.Money, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(currency.Money), args.Error(1)
}

type MockTransferSink struct {
	mock.Mock
}

func (m *MockTransferSink) Transfer(ctx context.Context, accountID, goalID string, amount currency.Money, transferUID string) error {
	args := m.Called(ctx, accountID, goalID, amount, transferUID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, event *eventbus.Event) error {
	args := m.Called(ctx, subject, event)
	return args.Error(0)
}

// ============================================================================
// in-memory fakes for concurrency tests
// ============================================================================

type memLedger struct {
	mu      sync.Mutex
	records map[string]Request
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]Request)}
}

func (l *memLedger) key(accountID string, week time.Time) string {
	return accountID + "|" + week.Format(DateLayout)
}

func (l *memLedger) Find(_ context.Context, accountID string, week time.Time) (*Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.records[l.key(accountID, week)]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return &req, nil
}

func (l *memLedger) Save(_ context.Context, req *Request) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(req.AccountID, req.WeekCommencing)
	if existing, ok := l.records[k]; ok {
		if existing.Status != StatusFailed {
			return ErrRequestExists
		}
		saved := *req
		saved.RequestID = existing.RequestID
		l.records[k] = saved
		return nil
	}
	l.records[k] = *req
	return nil
}

func (l *memLedger) UpdateStatusAndAmount(_ context.Context, accountID string, week time.Time, status Status, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(accountID, week)
	req, ok := l.records[k]
	if !ok {
		return ErrRequestNotFound
	}
	req.Status = status
	req.RoundUpAmount = amount
	l.records[k] = req
	return nil
}

type memLocker struct {
	mu   sync.Mutex
	seq  int
	held map[string]string
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryAcquire(_ context.Context, key string) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.seq++
	token := fmt.Sprintf("tok-%d", l.seq)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// openLocker grants every acquisition, as if each holder's TTL had lapsed.
type openLocker struct{}

func (openLocker) TryAcquire(context.Context, string) (string, bool, error) { return "open", true, nil }
func (openLocker) Release(context.Context, string, string) error { return nil }

type countingDispatcher struct {
	mu   sync.Mutex
	jobs []Job
}

func (d *countingDispatcher) Submit(job Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func (d *countingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

// ============================================================================
// helpers
// ============================================================================

var testWeek = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) // Monday

func testConverter(t *testing.T) *currency.Converter {
	t.Helper()
	table, err := currency.NewRateTable(map[string]currency.RateEntry{
		"USD": {Rate: decimal.RequireFromString("0.80"), DecimalPlaces: 2},
		"EUR": {Rate: decimal.RequireFromString("0.85"), DecimalPlaces: 2},
		"JPY": {Rate: decimal.RequireFromString("0.0053"), DecimalPlaces: 0},
	})
	require.NoError(t, err)
	return currency.NewConverter("GBP", table)
}

func gbp(minor int64) currency.Money {
	return currency.Money{Currency: "GBP", MinorUnits: minor}
}

func out(amount currency.Money) Transaction {
	return Transaction{Amount: amount, Direction: DirectionOut}
}
