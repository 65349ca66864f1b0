package outbox

// Event data shapes stored under PayloadEnvelope.Data. Amounts and
// timestamps travel as strings so indexers never lose precision.

type SubscriptionCreatedData struct {
	SubscriptionID  int64  `json:"subscriptionId"`
	Subscriber      string `json:"subscriber"`
	Merchant        string `json:"merchant"`
	Amount          string `json:"amount"`
	IntervalSeconds uint64 `json:"intervalSeconds"`
	InitialDeposit  string `json:"initialDeposit"`
	UsageEnabled    bool   `json:"usageEnabled"`
}

type FundsDepositedData struct {
	SubscriptionID int64  `json:"subscriptionId"`
	From           string `json:"from"`
	Amount         string `json:"amount"`
	NewBalance     string `json:"newBalance"`
}

type SubscriptionChargedData struct {
	SubscriptionID int64  `json:"subscriptionId"`
	Merchant       string `json:"merchant"`
	Amount         string `json:"amount"`
	RemainingBal   string `json:"remainingBalance"`
	ChargedAt      uint64 `json:"chargedAt"`
	Usage          bool   `json:"usage"`
}

type StatusChangedData struct {
	SubscriptionID int64  `json:"subscriptionId"`
	From           string `json:"from"`
	To             string `json:"to"`
}

type MerchantWithdrawalData struct {
	Merchant   string `json:"merchant"`
	Amount     string `json:"amount"`
	NewBalance string `json:"newBalance"`
}

type MerchantConfigUpdatedData struct {
	Merchant               string `json:"merchant"`
	Version                int    `json:"version"`
	MinSubscriptionAmount  string `json:"minSubscriptionAmount"`
	DefaultIntervalSeconds uint64 `json:"defaultIntervalSeconds"`
}

type FundsRecoveredData struct {
	Admin     string `json:"admin"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp uint64 `json:"timestamp"`
}
