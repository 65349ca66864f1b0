package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantConfig is the per-merchant billing policy. Absent rows read as
// the zero-default policy; the record is materialized on first write.
type MerchantConfig struct {
	Merchant string `gorm:"column:merchant;primaryKey"`
	// Version is fixed at 1; reserved for compatible policy expansion.
	Version                int             `gorm:"column:version;not null;default:1"`
	MinSubscriptionAmount  decimal.Decimal `gorm:"column:min_subscription_amount;type:numeric(39,0);not null"`
	DefaultIntervalSeconds uint64          `gorm:"column:default_interval_seconds;type:numeric(20,0);not null"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
