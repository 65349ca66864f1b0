package token

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

// DevLedger is an in-memory token backend for development and tests.
// It enforces the same balance and allowance rules a real token layer
// would, so failure paths are exercised end to end.
type DevLedger struct {
	mu         sync.Mutex
	balances   map[string]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
}

type allowanceKey struct {
	owner   string
	spender string
}

func NewDevLedger() *DevLedger {
	return &DevLedger{
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// Mint credits account with amount. Test and bootstrap helper.
func (d *DevLedger) Mint(account string, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.balances[account] = d.balance(account).Add(amount)
}

// Approve grants spender permission to pull up to amount from owner.
func (d *DevLedger) Approve(owner, spender string, amount decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allowances[allowanceKey{owner: owner, spender: spender}] = amount
}

func (d *DevLedger) Balance(_ context.Context, account string) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.balance(account), nil
}

func (d *DevLedger) Allowance(_ context.Context, owner, spender string) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allowance(owner, spender), nil
}

func (d *DevLedger) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.balance(from).LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeTransferFailed, "insufficient token balance")
	}

	d.balances[from] = d.balance(from).Sub(amount)
	d.balances[to] = d.balance(to).Add(amount)
	return nil
}

func (d *DevLedger) TransferFrom(_ context.Context, spender, owner, to string, amount decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := allowanceKey{owner: owner, spender: spender}
	if d.allowance(owner, spender).LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeInsufficientAllowance, "token allowance too low")
	}
	if d.balance(owner).LessThan(amount) {
		return pkgerrors.New(pkgerrors.CodeTransferFailed, "insufficient token balance")
	}

	d.allowances[key] = d.allowance(owner, spender).Sub(amount)
	d.balances[owner] = d.balance(owner).Sub(amount)
	d.balances[to] = d.balance(to).Add(amount)
	return nil
}

func (d *DevLedger) balance(account string) decimal.Decimal {
	if b, ok := d.balances[account]; ok {
		return b
	}
	return decimal.Zero
}

func (d *DevLedger) allowance(owner, spender string) decimal.Decimal {
	if a, ok := d.allowances[allowanceKey{owner: owner, spender: spender}]; ok {
		return a
	}
	return decimal.Zero
}
