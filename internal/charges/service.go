package charges

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/internal/merchants"
	"github.com/meridianpay/subvault/internal/statemachine"
	"github.com/meridianpay/subvault/internal/subscriptions"
	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	dbpkg "github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the charge engine.
type ServiceParams struct {
	Subscriptions subscriptions.Repository
	Merchants     merchants.Repository
	DB            txRunner
	Authorizer    auth.Authorizer
	Outbox        eventEmitter
	Clock         clock.Clock
	Logger        *logger.Logger
}

// Service is the charge engine: the only component that debits a
// subscription's escrow and credits the merchant ledger in one unit.
type Service struct {
	subs       subscriptions.Repository
	merchants  merchants.Repository
	db         txRunner
	authorizer auth.Authorizer
	outbox     eventEmitter
	clock      clock.Clock
	logg       *logger.Logger
}

// NewService builds a charge engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.Subscriptions == nil {
		return nil, errors.New("subscriptions repo is required")
	}
	if params.Merchants == nil {
		return nil, errors.New("merchants repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("db client is required")
	}
	if params.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Clock == nil {
		return nil, errors.New("clock is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		subs:       params.Subscriptions,
		merchants:  params.Merchants,
		db:         params.DB,
		authorizer: params.Authorizer,
		outbox:     params.Outbox,
		clock:      params.Clock,
		logg:       params.Logger,
	}, nil
}

// Charge bills one interval: debit the subscription's escrow by its
// recurring amount and credit the merchant ledger by the same amount.
// A shortfall commits the transition to insufficient_balance and then
// reports InsufficientBalance, so sweeps stop retrying until remediated.
func (s *Service) Charge(ctx context.Context, id int64) error {
	var shortfall bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		subRepo := s.subs.WithTx(tx)

		sub, err := subRepo.GetForUpdate(ctx, id)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking subscription")
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeNotActive, "subscription is not active").
				WithDetails(map[string]any{"status": sub.Status.String()})
		}

		if sub.PrepaidBalance.LessThan(sub.Amount) {
			if err := s.lapse(ctx, tx, subRepo, sub); err != nil {
				return err
			}
			shortfall = true
			return nil
		}

		newPrepaid, err := amount.CheckedSub(sub.PrepaidBalance, sub.Amount)
		if err != nil {
			return err
		}
		if _, err := s.creditMerchant(ctx, tx, sub.Merchant, sub.Amount); err != nil {
			return err
		}

		now := s.clock.Now()
		sub.PrepaidBalance = newPrepaid
		sub.LastPaymentTimestamp = now
		if err := subRepo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting charged subscription")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventSubscriptionCharged,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   strconv.FormatInt(id, 10),
			Data: outbox.SubscriptionChargedData{
				SubscriptionID: id,
				Merchant:       sub.Merchant,
				Amount:         sub.Amount.String(),
				RemainingBal:   newPrepaid.String(),
				ChargedAt:      now,
			},
		})
	})
	if err != nil {
		return err
	}
	if shortfall {
		return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "prepaid balance below charge amount")
	}

	s.logg.Info(s.logg.WithSubscriptionID(ctx, id), "subscription charged")
	return nil
}

// ChargeUsage draws an arbitrary amount from escrow for a usage-enabled
// subscription without touching the billing schedule. A drain to exactly
// zero lapses the subscription.
func (s *Service) ChargeUsage(ctx context.Context, id int64, merchant string, usage decimal.Decimal) error {
	if err := s.authorizer.RequireAuthorized(ctx, merchant); err != nil {
		return err
	}
	if usage.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "usage amount must be positive")
	}

	var drained bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		subRepo := s.subs.WithTx(tx)

		sub, err := subRepo.GetForUpdate(ctx, id)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking subscription")
		}
		if sub.Merchant != merchant {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "merchant does not own subscription")
		}
		if !sub.UsageEnabled {
			return pkgerrors.New(pkgerrors.CodeUsageNotEnabled, "usage charging not enabled")
		}
		if sub.Status != enums.SubscriptionStatusActive {
			return pkgerrors.New(pkgerrors.CodeNotActive, "subscription is not active").
				WithDetails(map[string]any{"status": sub.Status.String()})
		}
		if sub.PrepaidBalance.LessThan(usage) {
			return pkgerrors.New(pkgerrors.CodeInsufficientPrepaidBalance, "prepaid balance below usage amount").
				WithDetails(map[string]any{"prepaid": sub.PrepaidBalance.String()})
		}

		newPrepaid, err := amount.CheckedSub(sub.PrepaidBalance, usage)
		if err != nil {
			return err
		}
		if _, err := s.creditMerchant(ctx, tx, sub.Merchant, usage); err != nil {
			return err
		}

		sub.PrepaidBalance = newPrepaid
		if newPrepaid.IsZero() {
			if err := statemachine.Validate(sub.Status, enums.SubscriptionStatusInsufficientBalance); err != nil {
				return err
			}
			sub.Status = enums.SubscriptionStatusInsufficientBalance
			drained = true
		}
		if err := subRepo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting usage charge")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventUsageCharged,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   strconv.FormatInt(id, 10),
			Actor:         actorRef(ctx),
			Data: outbox.SubscriptionChargedData{
				SubscriptionID: id,
				Merchant:       sub.Merchant,
				Amount:         usage.String(),
				RemainingBal:   newPrepaid.String(),
				ChargedAt:      s.clock.Now(),
				Usage:          true,
			},
		})
	})
	if err != nil {
		return err
	}

	fields := map[string]any{"subscription_id": id, "amount": usage.String()}
	if drained {
		fields["drained"] = true
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "usage charged")
	return nil
}

// ChargeResult is the per-id outcome of a batch charge. ErrorCode is 0
// on success, otherwise the numeric ledger code for the failure.
type ChargeResult struct {
	SubscriptionID int64  `json:"subscription_id"`
	Success        bool   `json:"success"`
	ErrorCode      uint32 `json:"error_code"`
}

// BatchCharge attempts each id independently. One failure never aborts
// or rolls back the others.
func (s *Service) BatchCharge(ctx context.Context, ids []int64) []ChargeResult {
	results := make([]ChargeResult, 0, len(ids))
	for _, id := range ids {
		err := s.Charge(ctx, id)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"subscription_id": id,
				"error":           err.Error(),
			}), "batch charge entry failed")
		}
		results = append(results, ChargeResult{
			SubscriptionID: id,
			Success:        err == nil,
			ErrorCode:      pkgerrors.WireCode(err),
		})
	}
	return results
}

// lapse commits the active -> insufficient_balance transition for a
// subscription whose escrow cannot cover the recurring amount.
func (s *Service) lapse(ctx context.Context, tx *gorm.DB, subRepo subscriptions.Repository, sub *models.Subscription) error {
	if err := statemachine.Validate(sub.Status, enums.SubscriptionStatusInsufficientBalance); err != nil {
		return err
	}
	from := sub.Status
	sub.Status = enums.SubscriptionStatusInsufficientBalance
	if err := subRepo.Update(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting lapsed status")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventSubscriptionLapsed,
		AggregateType: enums.OutboxAggregateSubscription,
		AggregateID:   strconv.FormatInt(sub.ID, 10),
		Data: outbox.StatusChangedData{
			SubscriptionID: sub.ID,
			From:           from.String(),
			To:             enums.SubscriptionStatusInsufficientBalance.String(),
		},
	})
}

func (s *Service) creditMerchant(ctx context.Context, tx *gorm.DB, merchant string, credit decimal.Decimal) (decimal.Decimal, error) {
	repo := s.merchants.WithTx(tx)

	balance, err := repo.GetBalanceForUpdate(ctx, merchant)
	if err != nil {
		if !dbpkg.IsNotFound(err) {
			return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking merchant balance")
		}
		balance = &models.MerchantBalance{Merchant: merchant, Balance: decimal.Zero}
	}

	updated, err := amount.CheckedAdd(balance.Balance, credit)
	if err != nil {
		return decimal.Zero, err
	}
	balance.Balance = updated
	if err := repo.UpsertBalance(ctx, balance); err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting merchant credit")
	}
	return updated, nil
}

func actorRef(ctx context.Context) *outbox.ActorRef {
	principal, ok := auth.Principal(ctx)
	if !ok {
		return nil
	}
	return &outbox.ActorRef{Principal: principal, Admin: auth.IsAdmin(ctx)}
}
