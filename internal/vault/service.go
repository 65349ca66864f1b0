package vault

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/subvault/pkg/amount"
	"github.com/meridianpay/subvault/pkg/auth"
	dbpkg "github.com/meridianpay/subvault/pkg/db"
	"github.com/meridianpay/subvault/pkg/db/models"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

// ServiceParams groups dependencies for the vault service.
type ServiceParams struct {
	Repo       Repository
	Authorizer auth.Authorizer
	Logger     *logger.Logger
}

// Service manages the global vault parameters: token association, admin
// principal, and the minimum top-up threshold.
type Service struct {
	repo       Repository
	authorizer auth.Authorizer
	logg       *logger.Logger
}

// NewService builds a vault service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		repo:       params.Repo,
		authorizer: params.Authorizer,
		logg:       params.Logger,
	}, nil
}

// InitInput is the bootstrap configuration for the vault.
type InitInput struct {
	TokenAddress string
	Admin        string
	MinTopup     decimal.Decimal
}

// Init writes the vault parameters. Re-running replaces the stored values,
// matching redeploy semantics.
func (s *Service) Init(ctx context.Context, input InitInput) error {
	if input.MinTopup.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "min topup must be positive")
	}
	if !amount.InRange(input.MinTopup) {
		return pkgerrors.New(pkgerrors.CodeOverflow, "min topup outside amount range")
	}
	if input.TokenAddress == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token address is required")
	}
	if input.Admin == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "admin is required")
	}

	params := &models.VaultParams{
		TokenAddress: input.TokenAddress,
		Admin:        input.Admin,
		MinTopup:     input.MinTopup,
	}
	if err := s.repo.Upsert(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting vault params")
	}

	s.logg.Info(s.logg.WithField(ctx, "admin", input.Admin), "vault initialized")
	return nil
}

// SetMinTopup updates the minimum deposit threshold. Admin only. The
// amount is validated before authorization so malformed requests fail
// the same way for every caller.
func (s *Service) SetMinTopup(ctx context.Context, admin string, minTopup decimal.Decimal) error {
	if minTopup.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "min topup must be positive")
	}
	if !amount.InRange(minTopup) {
		return pkgerrors.New(pkgerrors.CodeOverflow, "min topup outside amount range")
	}
	if err := s.authorizer.RequireAuthorized(ctx, admin); err != nil {
		return err
	}

	params, err := s.Params(ctx)
	if err != nil {
		return err
	}
	if admin != params.Admin {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "caller is not the vault admin")
	}

	params.MinTopup = minTopup
	if err := s.repo.UpdateMinTopup(ctx, params); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating min topup")
	}

	s.logg.Info(s.logg.WithField(ctx, "min_topup", minTopup.String()), "min topup updated")
	return nil
}

// GetMinTopup returns the current minimum deposit threshold.
func (s *Service) GetMinTopup(ctx context.Context) (decimal.Decimal, error) {
	params, err := s.Params(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return params.MinTopup, nil
}

// Params returns the stored vault parameters or NotFound before init.
func (s *Service) Params(ctx context.Context) (*models.VaultParams, error) {
	params, err := s.repo.Get(ctx)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vault is not initialized")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading vault params")
	}
	return params, nil
}
