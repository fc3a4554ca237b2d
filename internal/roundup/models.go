package roundup

import (
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/roundup/internal/currency"
)

// Status is the persisted state of a round-up request
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Valid reports whether s is one of the persisted states.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Request is the ledger record, one per (account, week)
type Request struct {
	RequestID      uuid.UUID `json:"requestId" db:"request_id"`
	AccountID      string    `json:"accountId" db:"account_id"`
	WeekCommencing time.Time `json:"weekCommencing" db:"week_commencing"`
	Status         Status    `json:"status" db:"status"`
	RoundUpAmount  int64     `json:"roundUpAmount" db:"round_up_amount"` // minor units, 0 unless COMPLETED
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// Direction of a settled transaction
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Transaction is a settled feed item
type Transaction struct {
	Amount    currency.Money
	Direction Direction
	Timestamp time.Time
}

// Job is the unit of work handed to the async pipeline
type Job struct {
	RequestID      uuid.UUID
	AccountID      string
	GoalID         string
	WeekCommencing time.Time

	// CorrelationID ties pipeline logs back to the admitting HTTP request.
	CorrelationID string
}

// OutcomeKind is the synchronous result of an admission attempt
type OutcomeKind string

const (
	OutcomeAccepted          OutcomeKind = "ACCEPTED"
	OutcomeAlreadyInProgress OutcomeKind = "ALREADY_IN_PROGRESS"
	OutcomeAlreadyCompleted  OutcomeKind = "ALREADY_COMPLETED"
)

// Outcome wraps the admission decision. RequestID is set for ACCEPTED, Amount for ALREADY_COMPLETED.
type Outcome struct {
	Kind      OutcomeKind
	RequestID uuid.UUID
	Amount    int64
}

// Accepted builds an ACCEPTED outcome.
func Accepted(requestID uuid.UUID) Outcome {
	return Outcome{Kind: OutcomeAccepted, RequestID: requestID}
}

// AlreadyInProgress builds an ALREADY_IN_PROGRESS outcome.
func AlreadyInProgress() Outcome {
	return Outcome{Kind: OutcomeAlreadyInProgress}
}

// AlreadyCompleted builds an ALREADY_COMPLETED outcome.
func AlreadyCompleted(amount int64) Outcome {
	return Outcome{Kind: OutcomeAlreadyCompleted, Amount: amount}
}

// StatusReport is the answer to a status poll
type StatusReport struct {
	Found     bool
	Status    Status
	Amount    int64
	RequestID uuid.UUID
}

// InitiateResponse is returned by the trigger endpoint
type InitiateResponse struct {
	Status        string `json:"status"`
	RequestID     string `json:"requestId,omitempty"`
	RoundUpAmount *int64 `json:"roundUpAmount,omitempty"`
	Message       string `json:"message,omitempty"`
}

// StatusResponse is returned by the status endpoint
type StatusResponse struct {
	Status         string `json:"status"`
	AccountID      string `json:"accountId"`
	WeekCommencing string `json:"weekCommencing"`
	RequestID      string `json:"requestId,omitempty"`
	RoundUpAmount  *int64 `json:"roundUpAmount,omitempty"`
}
