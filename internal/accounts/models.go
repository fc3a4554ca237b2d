package accounts

// Goal is a savings goal the caller can round up into
type Goal struct {
	UID  string `json:"savingsGoalUid"`
	Name string `json:"name"`
}

// AccountDetails is returned by GET /accounts/details
type AccountDetails struct {
	AccountUID   string `json:"accountUid"`
	AccountName  string `json:"accountName"`
	SavingsGoals []Goal `json:"savingsGoalList"`
	Message      string `json:"message,omitempty"`
}
