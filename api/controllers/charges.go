package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/api/responses"
	"github.com/meridianpay/subvault/api/validators"
	"github.com/meridianpay/subvault/internal/charges"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// ChargeService is the billing surface needed by these handlers.
type ChargeService interface {
	Charge(ctx context.Context, id int64) error
	ChargeUsage(ctx context.Context, id int64, merchant string, usage decimal.Decimal) error
	BatchCharge(ctx context.Context, ids []int64) []charges.ChargeResult
}

// SubscriptionCharge executes one scheduled charge.
func SubscriptionCharge(svc ChargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Charge(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "charged": true})
	}
}

type usageChargeRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// SubscriptionUsageCharge executes a merchant-initiated metered charge.
func SubscriptionUsageCharge(svc ChargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		merchant, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		var payload usageChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		usage, err := validators.ParseAmount("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChargeUsage(r.Context(), id, merchant, usage); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "amount": usage.String()})
	}
}

type batchChargeRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

type batchChargeResult struct {
	SubscriptionID int64  `json:"subscription_id"`
	Success        bool   `json:"success"`
	ErrorCode      uint32 `json:"error_code"`
}

// BatchCharge attempts every listed subscription independently and
// reports per-id outcomes.
func BatchCharge(svc ChargeService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload batchChargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results := svc.BatchCharge(r.Context(), payload.IDs)
		out := make([]batchChargeResult, 0, len(results))
		for _, result := range results {
			out = append(out, batchChargeResult{
				SubscriptionID: result.SubscriptionID,
				Success:        result.Success,
				ErrorCode:      result.ErrorCode,
			})
		}
		responses.WriteSuccess(w, map[string]any{"results": out})
	}
}
