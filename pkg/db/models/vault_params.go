package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VaultParamsID is the primary key of the single vault_params row.
const VaultParamsID = 1

// VaultParams holds the global vault configuration written by init:
// the token contract address, the admin principal, and the minimum top-up.
// Reads before init fail NotFound.
type VaultParams struct {
	ID           int             `gorm:"column:id;primaryKey;autoIncrement:false"`
	TokenAddress string          `gorm:"column:token_address;not null"`
	Admin        string          `gorm:"column:admin;not null"`
	MinTopup     decimal.Decimal `gorm:"column:min_topup;type:numeric(39,0);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
