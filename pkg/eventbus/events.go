package eventbus

import "time"

// Subjects and types for round-up lifecycle events.
const (
	SubjectRoundUpCompleted = "roundup.completed"
	SubjectRoundUpFailed    = "roundup.failed"

	TypeRoundUpCompleted = "roundup.completed"
	TypeRoundUpFailed    = "roundup.failed"
)

// RoundUpCompletedData is published after a successful transfer.
type RoundUpCompletedData struct {
	RequestID      string    `json:"request_id"`
	AccountID      string    `json:"account_id"`
	GoalID         string    `json:"goal_id"`
	WeekCommencing string    `json:"week_commencing"`
	AmountMinor    int64     `json:"amount_minor"`
	Currency       string    `json:"currency"`
	TransferUID    string    `json:"transfer_uid"`
	CompletedAt    time.Time `json:"completed_at"`
}

// RoundUpFailedData is published when the pipeline ends in FAILED.
type RoundUpFailedData struct {
	RequestID      string    `json:"request_id"`
	AccountID      string    `json:"account_id"`
	GoalID         string    `json:"goal_id"`
	WeekCommencing string    `json:"week_commencing"`
	Reason         string    `json:"reason"`
	FailedAt       time.Time `json:"failed_at"`
}
