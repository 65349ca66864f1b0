package token

import (
	"context"

	"github.com/shopspring/decimal"
)

// Client moves token value between external accounts. The vault treats
// the token layer as a remote system: transfers can fail independently
// of ledger state, and allowances gate pulls from subscriber wallets.
type Client interface {
	// Balance returns the token balance held by account.
	Balance(ctx context.Context, account string) (decimal.Decimal, error)

	// Allowance returns how much spender may pull from owner.
	Allowance(ctx context.Context, owner, spender string) (decimal.Decimal, error)

	// Transfer moves amount from the custody account to recipient.
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error

	// TransferFrom pulls amount from owner into recipient, consuming
	// the allowance granted to spender.
	TransferFrom(ctx context.Context, spender, owner, to string, amount decimal.Decimal) error
}
