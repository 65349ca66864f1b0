package amount

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

// Token amounts are integral values in token base units. The ledger keeps
// them inside the signed 128-bit range so results stay portable to the
// on-chain representation.
var (
	maxI128 = decimal.NewFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1)), 0)
	minI128 = decimal.NewFromBigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)), 0)
)

// Zero is the additive identity for ledger amounts.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// New builds an amount from an int64 of token base units.
func New(units int64) decimal.Decimal {
	return decimal.NewFromInt(units)
}

// InRange reports whether v fits the signed 128-bit range.
func InRange(v decimal.Decimal) bool {
	return v.Cmp(minI128) >= 0 && v.Cmp(maxI128) <= 0
}

// CheckedAdd returns a+b or an overflow/underflow error when the result
// leaves the signed 128-bit range.
func CheckedAdd(a, b decimal.Decimal) (decimal.Decimal, error) {
	sum := a.Add(b)
	if sum.Cmp(maxI128) > 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeOverflow, "addition overflows amount range")
	}
	if sum.Cmp(minI128) < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnderflow, "addition underflows amount range")
	}
	return sum, nil
}

// CheckedSub returns a-b or an overflow/underflow error when the result
// leaves the signed 128-bit range.
func CheckedSub(a, b decimal.Decimal) (decimal.Decimal, error) {
	diff := a.Sub(b)
	if diff.Cmp(maxI128) > 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeOverflow, "subtraction overflows amount range")
	}
	if diff.Cmp(minI128) < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeUnderflow, "subtraction underflows amount range")
	}
	return diff, nil
}

// SaturatingAddUint64 adds an interval to a timestamp, clamping at the
// maximum representable timestamp instead of wrapping.
func SaturatingAddUint64(ts, delta uint64) uint64 {
	if ts > math.MaxUint64-delta {
		return math.MaxUint64
	}
	return ts + delta
}
