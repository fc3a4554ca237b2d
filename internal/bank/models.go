package bank

import "time"

// Amount is the bank's money representation.
type Amount struct {
	Currency   string `json:"currency"`
	MinorUnits int64  `json:"minorUnits"`
}

// FeedItem is a single settled transaction.
type FeedItem struct {
	FeedItemUID     string    `json:"feedItemUid"`
	Amount          Amount    `json:"amount"`
	SourceAmount    *Amount   `json:"sourceAmount,omitempty"`
	Direction       string    `json:"direction"`
	Status          string    `json:"status,omitempty"`
	TransactionTime time.Time `json:"transactionTime"`
}

type feedResponse struct {
	FeedItems []FeedItem `json:"feedItems"`
}

// balanceResponse keeps only the effective balance, which includes pending items.
type balanceResponse struct {
	EffectiveBalance *Amount `json:"effectiveBalance"`
}

// Account is a bank account owned by the token holder.
type Account struct {
	AccountUID      string `json:"accountUid"`
	AccountType     string `json:"accountType"`
	DefaultCategory string `json:"defaultCategory"`
	Currency        string `json:"currency"`
	CreatedAt       string `json:"createdAt"`
	Name            string `json:"name"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

// SavingsGoal is a savings space linked to an account.
type SavingsGoal struct {
	SavingsGoalUID string  `json:"savingsGoalUid"`
	Name           string  `json:"name"`
	Target         *Amount `json:"target,omitempty"`
	State          string  `json:"state,omitempty"`
}

type savingsGoalsResponse struct {
	SavingsGoalList []SavingsGoal `json:"savingsGoalList"`
}

// CreateSavingsGoalRequest is the body of a create-goal call.
type CreateSavingsGoalRequest struct {
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	Target   *Amount `json:"target,omitempty"`
}

type createSavingsGoalResponse struct {
	SavingsGoalUID string `json:"savingsGoalUid"`
	Success        bool   `json:"success"`
}

type transferRequest struct {
	Amount Amount `json:"amount"`
}

type transferResponse struct {
	TransferUID string `json:"transferUid"`
	Success     bool   `json:"success"`
}

// Well-known values.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"

	AccountTypePrimary = "PRIMARY"
	GoalStateActive    = "ACTIVE"
)
