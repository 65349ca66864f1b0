package subscriptions

import (
	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
)

// NextChargeInfo describes when a subscription is next due and whether a
// billing sweep should attempt it.
type NextChargeInfo struct {
	NextChargeTimestamp uint64 `json:"next_charge_timestamp"`
	IsChargeExpected    bool   `json:"is_charge_expected"`
}

// ComputeNextCharge derives the due date from a subscription snapshot.
// The addition saturates at the maximum timestamp instead of wrapping.
// InsufficientBalance subscriptions still report a pending charge: they
// are retried once funded, unlike Paused and Cancelled ones.
func ComputeNextCharge(sub *models.Subscription) NextChargeInfo {
	next := amount.SaturatingAddUint64(sub.LastPaymentTimestamp, sub.IntervalSeconds)
	expected := sub.Status == enums.SubscriptionStatusActive ||
		sub.Status == enums.SubscriptionStatusInsufficientBalance
	return NextChargeInfo{
		NextChargeTimestamp: next,
		IsChargeExpected:    expected,
	}
}

// IsDue reports whether the subscription's next charge time has arrived.
func IsDue(sub *models.Subscription, now uint64) bool {
	info := ComputeNextCharge(sub)
	return info.IsChargeExpected && info.NextChargeTimestamp <= now
}
