package enums

// OutboxEventType identifies a lifecycle event queued for external indexers.
type OutboxEventType string

const (
	OutboxEventSubscriptionCreated   OutboxEventType = "subscription.created"
	OutboxEventFundsDeposited        OutboxEventType = "subscription.deposited"
	OutboxEventSubscriptionCharged   OutboxEventType = "subscription.charged"
	OutboxEventUsageCharged          OutboxEventType = "subscription.usage_charged"
	OutboxEventSubscriptionPaused    OutboxEventType = "subscription.paused"
	OutboxEventSubscriptionResumed   OutboxEventType = "subscription.resumed"
	OutboxEventSubscriptionCancelled OutboxEventType = "subscription.cancelled"
	OutboxEventSubscriptionLapsed    OutboxEventType = "subscription.lapsed"
	OutboxEventMerchantWithdrawal    OutboxEventType = "merchant.withdrawn"
	OutboxEventMerchantConfigUpdated OutboxEventType = "merchant.config_updated"
	OutboxEventFundsRecovered        OutboxEventType = "vault.funds_recovered"
)

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateSubscription OutboxAggregateType = "subscription"
	OutboxAggregateMerchant     OutboxAggregateType = "merchant"
	OutboxAggregateVault        OutboxAggregateType = "vault"
)
