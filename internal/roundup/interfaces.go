package roundup

import (
	"context"
	"time"

	"github.com/richxcame/roundup/internal/currency"
	"github.com/richxcame/roundup/pkg/eventbus"
)

// Ledger stores one Request per (account, week)
type Ledger interface {
	// Find returns ErrRequestNotFound when no record exists.
	Find(ctx context.Context, accountID string, week time.Time) (*Request, error)
	Save(ctx context.Context, req *Request) error
	UpdateStatusAndAmount(ctx context.Context, accountID string, week time.Time, status Status, amount int64) error
}

// Locker is a non-blocking mutual exclusion service shared by all instances.
// Release takes the token of the acquisition being ended.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// Dispatcher hands a job to background workers without waiting for it
type Dispatcher interface {
	Submit(job Job) error
}

// TransactionSource lists settled transactions in [from, to)
type TransactionSource interface {
	FetchSettledTransactions(ctx context.Context, accountID string, from, to time.Time) ([]Transaction, error)
}

// BalanceSource reads the account's available balance
type BalanceSource interface {
	GetAvailableBalance(ctx context.Context, accountID string) (currency.Money, error)
}

// TransferSink moves money into a savings goal. transferUID identifies the transfer to the bank.
type TransferSink interface {
	Transfer(ctx context.Context, accountID, goalID string, amount currency.Money, transferUID string) error
}

// Publisher emits lifecycle events
type Publisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}
