package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/pkg/enums"
)

// Subscription is a recurring billing agreement between a subscriber and a
// merchant, together with the subscriber's escrowed prepaid balance.
//
// Rows are never deleted: cancellation is a terminal status, which keeps
// the full charge history auditable. IDs are minted from the counters table
// starting at 0 and are never reused.
type Subscription struct {
	ID                   int64                    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Subscriber           string                   `gorm:"column:subscriber;not null;index"`
	Merchant             string                   `gorm:"column:merchant;not null;index"`
	Amount               decimal.Decimal          `gorm:"column:amount;type:numeric(39,0);not null"`
	IntervalSeconds      uint64                   `gorm:"column:interval_seconds;type:numeric(20,0);not null"`
	LastPaymentTimestamp uint64                   `gorm:"column:last_payment_timestamp;type:numeric(20,0);not null"`
	Status               enums.SubscriptionStatus `gorm:"column:status;not null;default:'active';index"`
	PrepaidBalance       decimal.Decimal          `gorm:"column:prepaid_balance;type:numeric(39,0);not null"`
	UsageEnabled         bool                     `gorm:"column:usage_enabled;not null;default:false"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
