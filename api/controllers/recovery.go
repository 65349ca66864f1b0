package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/meridianpay/subvault/api/responses"
	"github.com/meridianpay/subvault/api/validators"
	"github.com/meridianpay/subvault/internal/recovery"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// RecoveryService is the stranded-funds surface needed by these handlers.
type RecoveryService interface {
	Recover(ctx context.Context, input recovery.RecoverInput) error
	History(ctx context.Context, limit int) ([]models.RecoveryEvent, error)
}

type recoverRequest struct {
	Recipient string `json:"recipient" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

// RecoverFunds extracts stranded tokens from custody. Admin only.
func RecoverFunds(svc RecoveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		var payload recoverRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recoveryAmount, err := validators.ParseAmount("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reason, err := enums.ParseRecoveryReason(strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid recovery reason"))
			return
		}

		err = svc.Recover(r.Context(), recovery.RecoverInput{
			Admin:     admin,
			Recipient: strings.TrimSpace(payload.Recipient),
			Amount:    recoveryAmount,
			Reason:    reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"recipient": payload.Recipient,
			"amount":    recoveryAmount.String(),
			"reason":    string(reason),
		})
	}
}

type recoveryEventResponse struct {
	ID        string `json:"id"`
	Admin     string `json:"admin"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason"`
	Timestamp uint64 `json:"timestamp"`
}

// RecoveryHistory lists recent recovery audit records. Admin only.
func RecoveryHistory(svc RecoveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit"))
				return
			}
			limit = parsed
		}

		events, err := svc.History(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]recoveryEventResponse, 0, len(events))
		for _, event := range events {
			out = append(out, recoveryEventResponse{
				ID:        event.ID.String(),
				Admin:     event.Admin,
				Recipient: event.Recipient,
				Amount:    event.Amount.String(),
				Reason:    string(event.Reason),
				Timestamp: event.Timestamp,
			})
		}
		responses.WriteSuccess(w, map[string]any{"events": out})
	}
}
