package recovery

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/outbox"
	"github.com/meridianpay/subvault/pkg/token"
)

const custody = "vault-custody"

type fakeRepository struct {
	events []models.RecoveryEvent
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Insert(ctx context.Context, event *models.RecoveryEvent) error {
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, limit int) ([]models.RecoveryEvent, error) {
	if limit > 0 && limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

type fakeVault struct {
	admin string
}

func (f *fakeVault) Params(ctx context.Context) (*models.VaultParams, error) {
	return &models.VaultParams{ID: models.VaultParamsID, Admin: f.admin}, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type harness struct {
	svc    *Service
	repo   *fakeRepository
	ledger *token.DevLedger
	outbox *fakeOutbox
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := &fakeRepository{}
	ledger := token.NewDevLedger()
	ledger.Mint(custody, decimal.NewFromInt(500))
	sink := &fakeOutbox{}

	svc, err := NewService(ServiceParams{
		Repo:           repo,
		DB:             fakeTxRunner{},
		Vault:          &fakeVault{admin: "admin-1"},
		Authorizer:     auth.NewAuthorizer(),
		Token:          ledger,
		Outbox:         sink,
		Clock:          &clock.Fixed{Timestamp: 1_700_000_000},
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		CustodyAddress: custody,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{svc: svc, repo: repo, ledger: ledger, outbox: sink}
}

func asAdmin() context.Context {
	return auth.WithPrincipal(context.Background(), "admin-1", true)
}

func TestRecoverMovesFundsAndAudits(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Recover(asAdmin(), RecoverInput{
		Admin:     "admin-1",
		Recipient: "bob",
		Amount:    decimal.NewFromInt(120),
		Reason:    enums.RecoveryReasonAccidentalTransfer,
	})
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}

	if got, _ := h.ledger.Balance(context.Background(), "bob"); !got.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("recipient balance = %s, want 120", got)
	}
	if len(h.repo.events) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(h.repo.events))
	}
	record := h.repo.events[0]
	if record.Admin != "admin-1" || record.Recipient != "bob" || record.Timestamp != 1_700_000_000 {
		t.Fatalf("unexpected audit record: %+v", record)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventFundsRecovered {
		t.Fatalf("expected recovered event, got %+v", h.outbox.events)
	}
}

func TestRecoverIsNotIdempotent(t *testing.T) {
	h := newHarness(t)
	input := RecoverInput{
		Admin:     "admin-1",
		Recipient: "bob",
		Amount:    decimal.NewFromInt(50),
		Reason:    enums.RecoveryReasonDeprecatedFlow,
	}

	for i := 0; i < 2; i++ {
		if err := h.svc.Recover(asAdmin(), input); err != nil {
			t.Fatalf("Recover #%d: %v", i+1, err)
		}
	}

	if got, _ := h.ledger.Balance(context.Background(), "bob"); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("recipient balance = %s, want 100 after two recoveries", got)
	}
	if len(h.repo.events) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(h.repo.events))
	}
}

func TestRecoverRejectsNonAdmin(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Recover(
		auth.WithPrincipal(context.Background(), "mallory", false),
		RecoverInput{
			Admin:     "mallory",
			Recipient: "mallory",
			Amount:    decimal.NewFromInt(10),
			Reason:    enums.RecoveryReasonAccidentalTransfer,
		})
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(h.repo.events) != 0 {
		t.Fatal("rejected recovery must not write audit records")
	}
}

func TestRecoverRejectsNonPositiveAmount(t *testing.T) {
	h := newHarness(t)

	for _, amt := range []int64{0, -5} {
		err := h.svc.Recover(asAdmin(), RecoverInput{
			Admin:     "admin-1",
			Recipient: "bob",
			Amount:    decimal.NewFromInt(amt),
			Reason:    enums.RecoveryReasonAccidentalTransfer,
		})
		if !pkgerrors.Is(err, pkgerrors.CodeInvalidRecoveryAmount) {
			t.Fatalf("amount %d: expected invalid recovery amount, got %v", amt, err)
		}
	}
}

func TestRecoverRejectsUnknownReason(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Recover(asAdmin(), RecoverInput{
		Admin:     "admin-1",
		Recipient: "bob",
		Amount:    decimal.NewFromInt(10),
		Reason:    enums.RecoveryReason("vibes"),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecoverSurfacesTransferFailure(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Recover(asAdmin(), RecoverInput{
		Admin:     "admin-1",
		Recipient: "bob",
		Amount:    decimal.NewFromInt(10_000),
		Reason:    enums.RecoveryReasonUnreachableSubscriber,
	})
	if !pkgerrors.Is(err, pkgerrors.CodeTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if len(h.repo.events) != 0 {
		t.Fatal("failed transfer must not write audit records")
	}
}

func TestHistoryHonorsLimit(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		if err := h.svc.Recover(asAdmin(), RecoverInput{
			Admin:     "admin-1",
			Recipient: "bob",
			Amount:    decimal.NewFromInt(1),
			Reason:    enums.RecoveryReasonAccidentalTransfer,
		}); err != nil {
			t.Fatalf("Recover: %v", err)
		}
	}

	events, err := h.svc.History(context.Background(), 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}
