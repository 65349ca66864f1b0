package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/pkg/enums"
)

// RecoveryEvent is the audit record for an admin extraction of stranded
// funds. Every recovery call appends a new row; there is no idempotency.
type RecoveryEvent struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Admin     string               `gorm:"column:admin;not null"`
	Recipient string               `gorm:"column:recipient;not null"`
	Amount    decimal.Decimal      `gorm:"column:amount;type:numeric(39,0);not null"`
	Reason    enums.RecoveryReason `gorm:"column:reason;not null"`
	Timestamp uint64               `gorm:"column:timestamp;type:numeric(20,0);not null"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
