package subscriptions

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/internal/statemachine"
	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	dbpkg "github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/outbox"
	"github.com/meridianpay/subvault/pkg/token"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type merchantPolicyProvider interface {
	GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error)
}

type vaultParamsProvider interface {
	Params(ctx context.Context) (*models.VaultParams, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the subscriptions service.
type ServiceParams struct {
	Repo           Repository
	DB             txRunner
	Merchants      merchantPolicyProvider
	Vault          vaultParamsProvider
	Authorizer     auth.Authorizer
	Token          token.Client
	Outbox         eventEmitter
	Clock          clock.Clock
	Logger         *logger.Logger
	CustodyAddress string
}

// Service owns the subscription entity lifecycle: creation, deposits, and
// status transitions. Charging lives in the charges package.
type Service struct {
	repo       Repository
	db         txRunner
	merchants  merchantPolicyProvider
	vault      vaultParamsProvider
	authorizer auth.Authorizer
	token      token.Client
	outbox     eventEmitter
	clock      clock.Clock
	logg       *logger.Logger
	custody    string
}

// NewService builds a subscriptions service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("db client is required")
	}
	if params.Merchants == nil {
		return nil, errors.New("merchant policy provider is required")
	}
	if params.Vault == nil {
		return nil, errors.New("vault params provider is required")
	}
	if params.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if params.Token == nil {
		return nil, errors.New("token client is required")
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
	if params.CustodyAddress == "" {
		return nil, errors.New("custody address is required")
	}
	return &Service{
		repo:       params.Repo,
		db:         params.DB,
		merchants:  params.Merchants,
		vault:      params.Vault,
		authorizer: params.Authorizer,
		token:      params.Token,
		outbox:     params.Outbox,
		clock:      params.Clock,
		logg:       params.Logger,
		custody:    params.CustodyAddress,
	}, nil
}

// CreateInput describes a new subscription request. Amount doubles as the
// required initial deposit.
type CreateInput struct {
	Subscriber      string
	Merchant        string
	Amount          decimal.Decimal
	IntervalSeconds uint64
	UsageEnabled    bool
}

// Create validates policy, pulls the initial deposit from the subscriber
// into vault custody, and persists the subscription under a fresh id.
// Every check runs before the transfer, and the transfer before any
// write; an early failure leaves no trace.
func (s *Service) Create(ctx context.Context, input CreateInput) (int64, error) {
	if err := s.authorizer.RequireAuthorized(ctx, input.Subscriber); err != nil {
		return 0, err
	}
	if input.Amount.Sign() <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "subscription amount must be positive")
	}
	if !amount.InRange(input.Amount) {
		return 0, pkgerrors.New(pkgerrors.CodeOverflow, "subscription amount outside range")
	}

	config, err := s.merchants.GetConfig(ctx, input.Merchant)
	if err != nil {
		return 0, err
	}
	if config.MinSubscriptionAmount.Sign() > 0 && input.Amount.LessThan(config.MinSubscriptionAmount) {
		return 0, pkgerrors.New(pkgerrors.CodeBelowMerchantMinimum, "amount below merchant minimum").
			WithDetails(map[string]any{"minimum": config.MinSubscriptionAmount.String()})
	}

	interval := input.IntervalSeconds
	if interval == 0 {
		if config.DefaultIntervalSeconds == 0 {
			return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "no billing interval resolvable")
		}
		interval = config.DefaultIntervalSeconds
	}

	allowance, err := s.token.Allowance(ctx, input.Subscriber, s.custody)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading allowance")
	}
	if allowance.LessThan(input.Amount) {
		return 0, pkgerrors.New(pkgerrors.CodeInsufficientAllowance, "allowance below initial deposit")
	}
	balance, err := s.token.Balance(ctx, input.Subscriber)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading subscriber balance")
	}
	if balance.LessThan(input.Amount) {
		return 0, pkgerrors.New(pkgerrors.CodeTransferFailed, "subscriber balance below initial deposit")
	}

	if err := s.token.TransferFrom(ctx, s.custody, input.Subscriber, s.custody, input.Amount); err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "pulling initial deposit")
	}

	now := s.clock.Now()
	var id int64
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		id, err = repo.NextID(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "minting subscription id")
		}

		sub := &models.Subscription{
			ID:                   id,
			Subscriber:           input.Subscriber,
			Merchant:             input.Merchant,
			Amount:               input.Amount,
			IntervalSeconds:      interval,
			LastPaymentTimestamp: now,
			Status:               enums.SubscriptionStatusActive,
			PrepaidBalance:       input.Amount,
			UsageEnabled:         input.UsageEnabled,
		}
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting subscription")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventSubscriptionCreated,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   strconv.FormatInt(id, 10),
			Actor:         actorRef(ctx),
			Data: outbox.SubscriptionCreatedData{
				SubscriptionID:  id,
				Subscriber:      input.Subscriber,
				Merchant:        input.Merchant,
				Amount:          input.Amount.String(),
				IntervalSeconds: interval,
				InitialDeposit:  input.Amount.String(),
				UsageEnabled:    input.UsageEnabled,
			},
		})
	})
	if err != nil {
		return 0, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"subscription_id": id,
		"merchant":        input.Merchant,
	}), "subscription created")
	return id, nil
}

// Deposit pulls a top-up from the subscriber into the subscription's
// escrow. Deposits are purely additive and never change status.
func (s *Service) Deposit(ctx context.Context, id int64, subscriber string, topup decimal.Decimal) error {
	if err := s.authorizer.RequireAuthorized(ctx, subscriber); err != nil {
		return err
	}
	if topup.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "deposit amount must be positive")
	}

	params, err := s.vault.Params(ctx)
	if err != nil {
		return err
	}
	if topup.LessThan(params.MinTopup) {
		return pkgerrors.New(pkgerrors.CodeBelowMinimumTopup, "deposit below minimum top-up").
			WithDetails(map[string]any{"min_topup": params.MinTopup.String()})
	}

	// existence and ownership must hold before any tokens move
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.Subscriber != subscriber {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "depositor is not the subscriber")
	}

	if err := s.token.TransferFrom(ctx, s.custody, subscriber, s.custody, topup); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "pulling deposit")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking subscription")
		}
		if sub.Subscriber != subscriber {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "depositor is not the subscriber")
		}

		updated, err := amount.CheckedAdd(sub.PrepaidBalance, topup)
		if err != nil {
			return err
		}
		sub.PrepaidBalance = updated
		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting deposit")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventFundsDeposited,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   strconv.FormatInt(id, 10),
			Actor:         actorRef(ctx),
			Data: outbox.FundsDepositedData{
				SubscriptionID: id,
				From:           subscriber,
				Amount:         topup.String(),
				NewBalance:     updated.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithSubscriptionID(ctx, id), "funds deposited")
	return nil
}

// Pause stops billing until the subscription is resumed.
func (s *Service) Pause(ctx context.Context, id int64, authorizer string) error {
	return s.transition(ctx, id, authorizer, enums.SubscriptionStatusPaused, enums.OutboxEventSubscriptionPaused)
}

// Resume returns a paused or lapsed subscription to active billing.
func (s *Service) Resume(ctx context.Context, id int64, authorizer string) error {
	return s.transition(ctx, id, authorizer, enums.SubscriptionStatusActive, enums.OutboxEventSubscriptionResumed)
}

// Cancel terminally ends the subscription. The remaining prepaid balance
// stays escrowed for the subscriber; rows are never deleted.
func (s *Service) Cancel(ctx context.Context, id int64, authorizer string) error {
	return s.transition(ctx, id, authorizer, enums.SubscriptionStatusCancelled, enums.OutboxEventSubscriptionCancelled)
}

func (s *Service) transition(ctx context.Context, id int64, authorizer string, target enums.SubscriptionStatus, eventType enums.OutboxEventType) error {
	if err := s.authorizer.RequireAuthorized(ctx, authorizer); err != nil {
		return err
	}

	var from enums.SubscriptionStatus
	changed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sub, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking subscription")
		}
		if authorizer != sub.Subscriber && authorizer != sub.Merchant {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "authorizer is neither subscriber nor merchant")
		}

		from = sub.Status
		if err := statemachine.Validate(sub.Status, target); err != nil {
			return err
		}
		if sub.Status == target {
			// idempotent self-transition, nothing to persist
			return nil
		}

		sub.Status = target
		if err := repo.Update(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting status change")
		}
		changed = true

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.OutboxAggregateSubscription,
			AggregateID:   strconv.FormatInt(id, 10),
			Actor:         actorRef(ctx),
			Data: outbox.StatusChangedData{
				SubscriptionID: id,
				From:           from.String(),
				To:             target.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	if changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"subscription_id": id,
			"from":            from.String(),
			"to":              target.String(),
		}), "subscription status changed")
	}
	return nil
}

// Get returns a subscription by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription")
	}
	return sub, nil
}

// NextCharge returns the due-date projection for a subscription.
func (s *Service) NextCharge(ctx context.Context, id int64) (NextChargeInfo, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return NextChargeInfo{}, err
	}
	return ComputeNextCharge(sub), nil
}

func actorRef(ctx context.Context) *outbox.ActorRef {
	principal, ok := auth.Principal(ctx)
	if !ok {
		return nil
	}
	return &outbox.ActorRef{Principal: principal, Admin: auth.IsAdmin(ctx)}
}
