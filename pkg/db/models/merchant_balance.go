package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantBalance is a merchant's aggregate earned-but-unwithdrawn value.
// It is a pure sum of charge credits minus withdrawal debits and never goes
// negative. Rows are created lazily on first credit.
type MerchantBalance struct {
	Merchant  string          `gorm:"column:merchant;primaryKey"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(39,0);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
