package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/api/responses"
	"github.com/meridianpay/subvault/api/validators"
	"github.com/meridianpay/subvault/internal/vault"
	"github.com/meridianpay/subvault/pkg/logger"
)

// VaultService is the vault-parameter surface needed by these handlers.
type VaultService interface {
	Init(ctx context.Context, input vault.InitInput) error
	SetMinTopup(ctx context.Context, admin string, minTopup decimal.Decimal) error
	GetMinTopup(ctx context.Context) (decimal.Decimal, error)
}

type vaultInitRequest struct {
	TokenAddress string `json:"token_address" validate:"required"`
	Admin        string `json:"admin" validate:"required"`
	MinTopup     string `json:"min_topup" validate:"required"`
}

// VaultInit bootstraps the vault parameters. Re-running replaces them.
func VaultInit(svc VaultService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload vaultInitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minTopup, err := validators.ParseAmount("min_topup", payload.MinTopup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := vault.InitInput{
			TokenAddress: strings.TrimSpace(payload.TokenAddress),
			Admin:        strings.TrimSpace(payload.Admin),
			MinTopup:     minTopup,
		}
		if err := svc.Init(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{
			"admin":     input.Admin,
			"min_topup": minTopup.String(),
		})
	}
}

type minTopupRequest struct {
	Admin    string `json:"admin" validate:"required"`
	MinTopup string `json:"min_topup" validate:"required"`
}

// VaultSetMinTopup updates the global deposit floor.
func VaultSetMinTopup(svc VaultService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload minTopupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		minTopup, err := validators.ParseAmount("min_topup", payload.MinTopup)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetMinTopup(r.Context(), strings.TrimSpace(payload.Admin), minTopup); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"min_topup": minTopup.String()})
	}
}

// VaultGetMinTopup reads the global deposit floor.
func VaultGetMinTopup(svc VaultService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		minTopup, err := svc.GetMinTopup(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"min_topup": minTopup.String()})
	}
}
