package recovery

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
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

// ServiceParams groups dependencies for the recovery service.
type ServiceParams struct {
	Repo           Repository
	DB             txRunner
	Vault          vaultParamsProvider
	Authorizer     auth.Authorizer
	Token          token.Client
	Outbox         eventEmitter
	Clock          clock.Clock
	Logger         *logger.Logger
	CustodyAddress string
}

// Service extracts stranded funds from vault custody. Recovery moves
// tokens only; subscription escrow and merchant ledgers are never read
// or written here.
type Service struct {
	repo       Repository
	db         txRunner
	vault      vaultParamsProvider
	authorizer auth.Authorizer
	token      token.Client
	outbox     eventEmitter
	clk        clock.Clock
	logg       *logger.Logger
	custody    string
}

// NewService builds a recovery service.
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
		vault:      params.Vault,
		authorizer: params.Authorizer,
		token:      params.Token,
		outbox:     params.Outbox,
		clk:        params.Clock,
		logg:       params.Logger,
		custody:    params.CustodyAddress,
	}, nil
}

// RecoverInput describes one admin extraction of stranded custody funds.
type RecoverInput struct {
	Admin     string
	Recipient string
	Amount    decimal.Decimal
	Reason    enums.RecoveryReason
}

// Recover transfers stranded funds from custody to the recipient and
// appends an audit record. Calls are not idempotent; every invocation
// moves tokens again.
func (s *Service) Recover(ctx context.Context, input RecoverInput) error {
	if err := s.authorizer.RequireAuthorized(ctx, input.Admin); err != nil {
		return err
	}
	params, err := s.vault.Params(ctx)
	if err != nil {
		return err
	}
	if input.Admin != params.Admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor is not the vault admin")
	}
	if input.Amount.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRecoveryAmount, "recovery amount must be positive")
	}
	if !amount.InRange(input.Amount) {
		return pkgerrors.New(pkgerrors.CodeOverflow, "recovery amount outside range")
	}
	if input.Recipient == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}
	if !input.Reason.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown recovery reason").
			WithDetails(map[string]any{"reason": string(input.Reason)})
	}

	if err := s.token.Transfer(ctx, s.custody, input.Recipient, input.Amount); err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeTransferFailed, err, "transferring recovered funds")
	}

	now := s.clk.Now()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := &models.RecoveryEvent{
			Admin:     input.Admin,
			Recipient: input.Recipient,
			Amount:    input.Amount,
			Reason:    input.Reason,
			Timestamp: now,
		}
		if err := s.repo.WithTx(tx).Insert(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting recovery audit record")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventFundsRecovered,
			AggregateType: enums.OutboxAggregateVault,
			AggregateID:   strconv.Itoa(models.VaultParamsID),
			Actor:         &outbox.ActorRef{Principal: input.Admin, Admin: true},
			Data: outbox.FundsRecoveredData{
				Admin:     input.Admin,
				Recipient: input.Recipient,
				Amount:    input.Amount.String(),
				Reason:    string(input.Reason),
				Timestamp: now,
			},
		})
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"recipient": input.Recipient,
		"amount":    input.Amount.String(),
		"reason":    string(input.Reason),
	}), "stranded funds recovered")
	return nil
}

// History returns the most recent recovery audit records.
func (s *Service) History(ctx context.Context, limit int) ([]models.RecoveryEvent, error) {
	events, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing recovery events")
	}
	return events, nil
}
