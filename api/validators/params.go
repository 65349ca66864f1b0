package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/pkg/amount"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
)

// SubscriptionID extracts the {subscriptionId} path parameter.
func SubscriptionID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "subscriptionId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription id").
			WithDetails(map[string]any{"subscription_id": raw})
	}
	return id, nil
}

// Merchant extracts the {merchant} path parameter.
func Merchant(r *http.Request) (string, error) {
	merchant := strings.TrimSpace(chi.URLParam(r, "merchant"))
	if merchant == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "merchant is required")
	}
	return merchant, nil
}

// ParseAmount converts a decimal string from a request body into an
// in-range amount. Fractional values are rejected; the ledger operates
// on integral token units.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount").
			WithDetails(map[string]any{field: raw})
	}
	if !value.IsInteger() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be an integral number of units").
			WithDetails(map[string]any{field: raw})
	}
	if !amount.InRange(value) {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount outside representable range").
			WithDetails(map[string]any{field: raw})
	}
	return value, nil
}
