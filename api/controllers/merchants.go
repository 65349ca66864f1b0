package controllers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/api/responses"
	"github.com/meridianpay/subvault/api/validators"
	"github.com/meridianpay/subvault/internal/merchants"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/db/models"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// MerchantService is the merchant policy and ledger surface needed by
// these handlers.
type MerchantService interface {
	SetConfig(ctx context.Context, input merchants.SetConfigInput) error
	UpdateConfig(ctx context.Context, input merchants.UpdateConfigInput) error
	GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error)
	GetBalance(ctx context.Context, merchant string) (decimal.Decimal, error)
	Withdraw(ctx context.Context, merchant string, withdrawal decimal.Decimal) error
}

type merchantConfigRequest struct {
	MinSubscriptionAmount  string `json:"min_subscription_amount" validate:"required"`
	DefaultIntervalSeconds uint64 `json:"default_interval_seconds"`
}

type merchantConfigPatchRequest struct {
	MinSubscriptionAmount  *string `json:"min_subscription_amount"`
	DefaultIntervalSeconds *uint64 `json:"default_interval_seconds"`
}

type merchantConfigResponse struct {
	Merchant               string `json:"merchant"`
	Version                int    `json:"version"`
	MinSubscriptionAmount  string `json:"min_subscription_amount"`
	DefaultIntervalSeconds uint64 `json:"default_interval_seconds"`
}

func merchantConfigFromModel(m *models.MerchantConfig) merchantConfigResponse {
	return merchantConfigResponse{
		Merchant:               m.Merchant,
		Version:                m.Version,
		MinSubscriptionAmount:  m.MinSubscriptionAmount.String(),
		DefaultIntervalSeconds: m.DefaultIntervalSeconds,
	}
}

// MerchantSetConfig replaces a merchant's billing policy.
func MerchantSetConfig(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := validators.Merchant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload merchantConfigRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minAmount, err := validators.ParseAmount("min_subscription_amount", payload.MinSubscriptionAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		err = svc.SetConfig(r.Context(), merchants.SetConfigInput{
			Actor:                  actor,
			Merchant:               merchant,
			MinSubscriptionAmount:  minAmount,
			DefaultIntervalSeconds: payload.DefaultIntervalSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		config, err := svc.GetConfig(r.Context(), merchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, merchantConfigFromModel(config))
	}
}

// MerchantUpdateConfig applies a partial policy update; absent fields
// keep their stored values.
func MerchantUpdateConfig(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := validators.Merchant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload merchantConfigPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var minAmount *decimal.Decimal
		if payload.MinSubscriptionAmount != nil {
			parsed, err := validators.ParseAmount("min_subscription_amount", *payload.MinSubscriptionAmount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			minAmount = &parsed
		}

		actor, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		err = svc.UpdateConfig(r.Context(), merchants.UpdateConfigInput{
			Actor:                  actor,
			Merchant:               merchant,
			MinSubscriptionAmount:  minAmount,
			DefaultIntervalSeconds: payload.DefaultIntervalSeconds,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		config, err := svc.GetConfig(r.Context(), merchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, merchantConfigFromModel(config))
	}
}

// MerchantGetConfig reads the effective policy. Merchants without a
// stored row report zero-value defaults.
func MerchantGetConfig(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := validators.Merchant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		config, err := svc.GetConfig(r.Context(), merchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, merchantConfigFromModel(config))
	}
}

// MerchantGetBalance reads the merchant's earned balance.
func MerchantGetBalance(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := validators.Merchant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), merchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"merchant": merchant,
			"balance":  balance.String(),
		})
	}
}

type withdrawRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// MerchantWithdraw moves earned funds out of the vault to the merchant.
func MerchantWithdraw(svc MerchantService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		merchant, err := validators.Merchant(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload withdrawRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		withdrawal, err := validators.ParseAmount("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Withdraw(r.Context(), merchant, withdrawal); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), merchant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"merchant": merchant,
			"amount":   withdrawal.String(),
			"balance":  balance.String(),
		})
	}
}
