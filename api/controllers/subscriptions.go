package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/api/responses"
	"github.com/meridianpay/subvault/api/validators"
	"github.com/meridianpay/subvault/internal/subscriptions"
	pkgauth "github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// SubscriptionService is the subscription lifecycle surface needed by
// these handlers.
type SubscriptionService interface {
	Create(ctx context.Context, input subscriptions.CreateInput) (int64, error)
	Deposit(ctx context.Context, id int64, subscriber string, topup decimal.Decimal) error
	Pause(ctx context.Context, id int64, authorizer string) error
	Resume(ctx context.Context, id int64, authorizer string) error
	Cancel(ctx context.Context, id int64, authorizer string) error
	Get(ctx context.Context, id int64) (*models.Subscription, error)
	NextCharge(ctx context.Context, id int64) (subscriptions.NextChargeInfo, error)
}

type subscriptionCreateRequest struct {
	Merchant        string `json:"merchant" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	IntervalSeconds uint64 `json:"interval_seconds"`
	UsageEnabled    bool   `json:"usage_enabled"`
}

type subscriptionResponse struct {
	ID                   int64                    `json:"id"`
	Subscriber           string                   `json:"subscriber"`
	Merchant             string                   `json:"merchant"`
	Amount               string                   `json:"amount"`
	IntervalSeconds      uint64                   `json:"interval_seconds"`
	LastPaymentTimestamp uint64                   `json:"last_payment_timestamp"`
	Status               enums.SubscriptionStatus `json:"status"`
	PrepaidBalance       string                   `json:"prepaid_balance"`
	UsageEnabled         bool                     `json:"usage_enabled"`
}

func subscriptionFromModel(m *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                   m.ID,
		Subscriber:           m.Subscriber,
		Merchant:             m.Merchant,
		Amount:               m.Amount.String(),
		IntervalSeconds:      m.IntervalSeconds,
		LastPaymentTimestamp: m.LastPaymentTimestamp,
		Status:               m.Status,
		PrepaidBalance:       m.PrepaidBalance.String(),
		UsageEnabled:         m.UsageEnabled,
	}
}

// SubscriptionCreate opens a subscription funded by the caller's first
// period payment.
func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subscriber, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		var payload subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subAmount, err := validators.ParseAmount("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := svc.Create(r.Context(), subscriptions.CreateInput{
			Subscriber:      subscriber,
			Merchant:        strings.TrimSpace(payload.Merchant),
			Amount:          subAmount,
			IntervalSeconds: payload.IntervalSeconds,
			UsageEnabled:    payload.UsageEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, subscriptionFromModel(created))
	}
}

type depositRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// SubscriptionDeposit tops up the prepaid escrow balance.
func SubscriptionDeposit(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriber, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		var payload depositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		topup, err := validators.ParseAmount("amount", payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deposit(r.Context(), id, subscriber, topup); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscriptionFromModel(sub))
	}
}

// SubscriptionGet reads one subscription.
func SubscriptionGet(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, subscriptionFromModel(sub))
	}
}

// SubscriptionNextCharge projects the next scheduled charge.
func SubscriptionNextCharge(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		info, err := svc.NextCharge(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

// SubscriptionPause suspends scheduled billing.
func SubscriptionPause(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc.Pause, logg)
}

// SubscriptionResume reactivates a paused or lapsed subscription.
func SubscriptionResume(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc.Resume, logg)
}

// SubscriptionCancel terminally closes a subscription.
func SubscriptionCancel(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc.Cancel, logg)
}

func transitionHandler(op func(ctx context.Context, id int64, authorizer string) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.SubscriptionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		authorizer, ok := pkgauth.Principal(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal missing"))
			return
		}

		if err := op(r.Context(), id, authorizer); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id})
	}
}
