package vault

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/db/models"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
)

type fakeRepository struct {
	params *models.VaultParams
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Get(ctx context.Context) (*models.VaultParams, error) {
	if f.params == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *f.params
	return &cp, nil
}

func (f *fakeRepository) Upsert(ctx context.Context, params *models.VaultParams) error {
	cp := *params
	f.params = &cp
	return nil
}

func (f *fakeRepository) UpdateMinTopup(ctx context.Context, params *models.VaultParams) error {
	if f.params == nil {
		return gorm.ErrRecordNotFound
	}
	f.params.MinTopup = params.MinTopup
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:       repo,
		Authorizer: auth.NewAuthorizer(),
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func asPrincipal(principal string, admin bool) context.Context {
	return auth.WithPrincipal(context.Background(), principal, admin)
}

func TestInitStoresParams(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo)

	err := svc.Init(context.Background(), InitInput{
		TokenAddress: "token-1",
		Admin:        "admin-1",
		MinTopup:     decimal.NewFromInt(1_000000),
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	got, err := svc.GetMinTopup(context.Background())
	if err != nil {
		t.Fatalf("GetMinTopup: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(1_000000)) {
		t.Fatalf("min topup = %s, want 1000000", got)
	}
}

func TestInitRejectsNonPositiveMinTopup(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	err := svc.Init(context.Background(), InitInput{
		TokenAddress: "token-1",
		Admin:        "admin-1",
		MinTopup:     decimal.Zero,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestGetMinTopupBeforeInit(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	_, err := svc.GetMinTopup(context.Background())
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found before init, got %v", err)
	}
}

func TestSetMinTopupByAdmin(t *testing.T) {
	repo := &fakeRepository{params: &models.VaultParams{
		ID:           models.VaultParamsID,
		TokenAddress: "token-1",
		Admin:        "admin-1",
		MinTopup:     decimal.NewFromInt(1_000000),
	}}
	svc := newTestService(t, repo)

	if err := svc.SetMinTopup(asPrincipal("admin-1", false), "admin-1", decimal.NewFromInt(5_000000)); err != nil {
		t.Fatalf("SetMinTopup: %v", err)
	}
	if !repo.params.MinTopup.Equal(decimal.NewFromInt(5_000000)) {
		t.Fatalf("min topup = %s, want 5000000", repo.params.MinTopup)
	}
}

func TestSetMinTopupRejectsNonAdmin(t *testing.T) {
	repo := &fakeRepository{params: &models.VaultParams{
		ID:       models.VaultParamsID,
		Admin:    "admin-1",
		MinTopup: decimal.NewFromInt(1_000000),
	}}
	svc := newTestService(t, repo)

	err := svc.SetMinTopup(asPrincipal("mallory", false), "mallory", decimal.NewFromInt(5_000000))
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if !repo.params.MinTopup.Equal(decimal.NewFromInt(1_000000)) {
		t.Fatalf("min topup changed to %s", repo.params.MinTopup)
	}
}

func TestSetMinTopupValidatesAmountBeforeAuth(t *testing.T) {
	svc := newTestService(t, &fakeRepository{})

	// no principal on context; the amount check still fires first
	err := svc.SetMinTopup(context.Background(), "admin-1", decimal.NewFromInt(-5))
	if !pkgerrors.Is(err, pkgerrors.CodeInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}
