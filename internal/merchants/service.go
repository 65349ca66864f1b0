package merchants

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/auth"
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

type vaultParamsProvider interface {
	Params(ctx context.Context) (*models.VaultParams, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the merchants service.
type ServiceParams struct {
	Repo           Repository
	DB             txRunner
	Vault          vaultParamsProvider
	Authorizer     auth.Authorizer
	Token          token.Client
	Outbox         eventEmitter
	Logger         *logger.Logger
	CustodyAddress string
}

// Service manages per-merchant billing policy and the earned-balance ledger.
type Service struct {
	repo       Repository
	db         txRunner
	vault      vaultParamsProvider
	authorizer auth.Authorizer
	token      token.Client
	outbox     eventEmitter
	logg       *logger.Logger
	custody    string
}

// NewService builds a merchants service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.DB == nil {
		return nil, errors.New("db client is required")
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
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.CustodyAddress == "" {
		return nil, errors.New("custody address is required")
	}
	return &Service{
		repo:       params.Repo,
		db:         params.DB,
		vault:      params.Vault,
		authorizer: params.Authorizer,
		token:      params.Token,
		outbox:     params.Outbox,
		logg:       params.Logger,
		custody:    params.CustodyAddress,
	}, nil
}

// SetConfigInput replaces a merchant's policy wholesale.
type SetConfigInput struct {
	Actor                  string
	Merchant               string
	MinSubscriptionAmount  decimal.Decimal
	DefaultIntervalSeconds uint64
}

// SetConfig overwrites the merchant's billing policy. The actor must be
// the merchant itself or the vault admin.
func (s *Service) SetConfig(ctx context.Context, input SetConfigInput) error {
	if input.MinSubscriptionAmount.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "min subscription amount must not be negative")
	}
	if !amount.InRange(input.MinSubscriptionAmount) {
		return pkgerrors.New(pkgerrors.CodeOverflow, "min subscription amount outside range")
	}
	if err := s.requireAdminOrMerchant(ctx, input.Actor, input.Merchant); err != nil {
		return err
	}

	config := &models.MerchantConfig{
		Merchant:               input.Merchant,
		Version:                1,
		MinSubscriptionAmount:  input.MinSubscriptionAmount,
		DefaultIntervalSeconds: input.DefaultIntervalSeconds,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpsertConfig(ctx, config); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting merchant config")
		}
		return s.emitConfigUpdated(ctx, tx, input.Actor, config)
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithMerchant(ctx, input.Merchant), "merchant config set")
	return nil
}

// UpdateConfigInput patches a merchant's policy; nil fields keep their
// stored values.
type UpdateConfigInput struct {
	Actor                  string
	Merchant               string
	MinSubscriptionAmount  *decimal.Decimal
	DefaultIntervalSeconds *uint64
}

// UpdateConfig applies a partial policy update via read-modify-write.
func (s *Service) UpdateConfig(ctx context.Context, input UpdateConfigInput) error {
	if err := s.requireAdminOrMerchant(ctx, input.Actor, input.Merchant); err != nil {
		return err
	}

	current, err := s.GetConfig(ctx, input.Merchant)
	if err != nil {
		return err
	}

	if input.MinSubscriptionAmount != nil {
		if input.MinSubscriptionAmount.Sign() < 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidAmount, "min subscription amount must not be negative")
		}
		if !amount.InRange(*input.MinSubscriptionAmount) {
			return pkgerrors.New(pkgerrors.CodeOverflow, "min subscription amount outside range")
		}
		current.MinSubscriptionAmount = *input.MinSubscriptionAmount
	}
	if input.DefaultIntervalSeconds != nil {
		current.DefaultIntervalSeconds = *input.DefaultIntervalSeconds
	}
	current.Version = 1

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpsertConfig(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting merchant config")
		}
		return s.emitConfigUpdated(ctx, tx, input.Actor, current)
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithMerchant(ctx, input.Merchant), "merchant config updated")
	return nil
}

// GetConfig returns the stored policy, or the zero-default record when
// the merchant has never written one. It never errors on absence.
func (s *Service) GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error) {
	config, err := s.repo.GetConfig(ctx, merchant)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return &models.MerchantConfig{
				Merchant:               merchant,
				Version:                1,
				MinSubscriptionAmount:  decimal.Zero,
				DefaultIntervalSeconds: 0,
			}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading merchant config")
	}
	return config, nil
}

// GetBalance returns the merchant's earned balance, or zero when no
// charge has credited the merchant yet.
func (s *Service) GetBalance(ctx context.Context, merchant string) (decimal.Decimal, error) {
	balance, err := s.repo.GetBalance(ctx, merchant)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading merchant balance")
	}
	return balance.Balance, nil
}

// Withdraw debits the merchant ledger and then transfers the value out of
// vault custody. The debit commits before the external transfer runs, so
// a retried or re-entered transfer can never double-spend earned value.
func (s *Service) Withdraw(ctx context.Context, merchant string, withdrawal decimal.Decimal) error {
	if err := s.authorizer.RequireAuthorized(ctx, merchant); err != nil {
		return err
	}
	if withdrawal.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "withdrawal amount must be positive")
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.GetBalanceForUpdate(ctx, merchant)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "merchant balance is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking merchant balance")
		}
		if balance.Balance.LessThan(withdrawal) {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "withdrawal exceeds merchant balance").
				WithDetails(map[string]any{"balance": balance.Balance.String()})
		}

		updated, err := amount.CheckedSub(balance.Balance, withdrawal)
		if err != nil {
			return err
		}
		balance.Balance = updated
		if err := repo.UpsertBalance(ctx, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting merchant debit")
		}

		actor := actorRef(ctx)
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventMerchantWithdrawal,
			AggregateType: enums.OutboxAggregateMerchant,
			AggregateID:   merchant,
			Actor:         actor,
			Data: outbox.MerchantWithdrawalData{
				Merchant:   merchant,
				Amount:     withdrawal.String(),
				NewBalance: updated.String(),
			},
		})
	})
	if err != nil {
		return err
	}

	if err := s.token.Transfer(ctx, s.custody, merchant, withdrawal); err != nil {
		// the ledger debit is already committed; surface the transfer
		// failure for retry out of band
		s.logg.Error(s.logg.WithMerchant(ctx, merchant), "custody transfer failed after debit", err)
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "transferring withdrawal")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"merchant": merchant,
		"amount":   withdrawal.String(),
	}), "merchant withdrawal complete")
	return nil
}

func (s *Service) requireAdminOrMerchant(ctx context.Context, actor, merchant string) error {
	if err := s.authorizer.RequireAuthorized(ctx, actor); err != nil {
		return err
	}
	if actor == merchant {
		return nil
	}
	params, err := s.vault.Params(ctx)
	if err != nil {
		return err
	}
	if actor != params.Admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is neither merchant nor admin")
	}
	return nil
}

func (s *Service) emitConfigUpdated(ctx context.Context, tx *gorm.DB, actorPrincipal string, config *models.MerchantConfig) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventMerchantConfigUpdated,
		AggregateType: enums.OutboxAggregateMerchant,
		AggregateID:   config.Merchant,
		Actor:         &outbox.ActorRef{Principal: actorPrincipal},
		Data: outbox.MerchantConfigUpdatedData{
			Merchant:               config.Merchant,
			Version:                config.Version,
			MinSubscriptionAmount:  config.MinSubscriptionAmount.String(),
			DefaultIntervalSeconds: config.DefaultIntervalSeconds,
		},
	})
}

func actorRef(ctx context.Context) *outbox.ActorRef {
	principal, ok := auth.Principal(ctx)
	if !ok {
		return nil
	}
	return &outbox.ActorRef{Principal: principal, Admin: auth.IsAdmin(ctx)}
}
