package charges

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/meridianpay/subvault/internal/merchants"
	"github.com/meridianpay/subvault/internal/subscriptions"
	"github.com/meridianpay/subvault/pkg/auth"
	"github.com/meridianpay/subvault/pkg/clock"
	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/outbox"
)

type fakeSubRepo struct {
	subs map[int64]models.Subscription
}

func (f *fakeSubRepo) WithTx(tx *gorm.DB) subscriptions.Repository { return f }

func (f *fakeSubRepo) NextID(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeSubRepo) Create(ctx context.Context, sub *models.Subscription) error {
	f.subs[sub.ID] = *sub
	return nil
}

func (f *fakeSubRepo) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	if sub, ok := f.subs[id]; ok {
		cp := sub
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) GetForUpdate(ctx context.Context, id int64) (*models.Subscription, error) {
	return f.Get(ctx, id)
}

func (f *fakeSubRepo) Update(ctx context.Context, sub *models.Subscription) error {
	f.subs[sub.ID] = *sub
	return nil
}

func (f *fakeSubRepo) ListChargeableIDs(ctx context.Context, now uint64, limit int) ([]int64, error) {
	return nil, nil
}

type fakeMerchantRepo struct {
	balances map[string]models.MerchantBalance
}

func (f *fakeMerchantRepo) WithTx(tx *gorm.DB) merchants.Repository { return f }

func (f *fakeMerchantRepo) GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMerchantRepo) UpsertConfig(ctx context.Context, config *models.MerchantConfig) error {
	return nil
}

func (f *fakeMerchantRepo) GetBalance(ctx context.Context, merchant string) (*models.MerchantBalance, error) {
	if balance, ok := f.balances[merchant]; ok {
		cp := balance
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMerchantRepo) GetBalanceForUpdate(ctx context.Context, merchant string) (*models.MerchantBalance, error) {
	return f.GetBalance(ctx, merchant)
}

func (f *fakeMerchantRepo) UpsertBalance(ctx context.Context, balance *models.MerchantBalance) error {
	f.balances[balance.Merchant] = *balance
	return nil
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
	svc          *Service
	subs         *fakeSubRepo
	merchantRepo *fakeMerchantRepo
	outbox       *fakeOutbox
	clock        *clock.Fixed
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	subs := &fakeSubRepo{subs: make(map[int64]models.Subscription)}
	merchantRepo := &fakeMerchantRepo{balances: make(map[string]models.MerchantBalance)}
	sink := &fakeOutbox{}
	fixed := &clock.Fixed{Timestamp: 1_700_000_000}

	svc, err := NewService(ServiceParams{
		Subscriptions: subs,
		Merchants:     merchantRepo,
		DB:            fakeTxRunner{},
		Authorizer:    auth.NewAuthorizer(),
		Outbox:        sink,
		Clock:         fixed,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{svc: svc, subs: subs, merchantRepo: merchantRepo, outbox: sink, clock: fixed}
}

func seed(h *harness, id int64, prepaid, amount int64, opts ...func(*models.Subscription)) {
	sub := models.Subscription{
		ID:                   id,
		Subscriber:           "alice",
		Merchant:             "merchant-1",
		Amount:               decimal.NewFromInt(amount),
		IntervalSeconds:      3600,
		LastPaymentTimestamp: 1_600_000_000,
		Status:               enums.SubscriptionStatusActive,
		PrepaidBalance:       decimal.NewFromInt(prepaid),
	}
	for _, opt := range opts {
		opt(&sub)
	}
	h.subs.subs[id] = sub
}

func merchantBalance(h *harness) decimal.Decimal {
	if balance, ok := h.merchantRepo.balances["merchant-1"]; ok {
		return balance.Balance
	}
	return decimal.Zero
}

func asMerchant() context.Context {
	return auth.WithPrincipal(context.Background(), "merchant-1", false)
}

func TestChargeMovesValueConservatively(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 100, 40)

	if err := h.svc.Charge(context.Background(), 0); err != nil {
		t.Fatalf("Charge: %v", err)
	}

	sub := h.subs.subs[0]
	if !sub.PrepaidBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("prepaid = %s, want 60", sub.PrepaidBalance)
	}
	if !merchantBalance(h).Equal(decimal.NewFromInt(40)) {
		t.Fatalf("merchant balance = %s, want 40", merchantBalance(h))
	}
	// escrow debit and merchant credit must sum to zero
	total := sub.PrepaidBalance.Add(merchantBalance(h))
	if !total.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("value not conserved: %s", total)
	}
	if sub.LastPaymentTimestamp != h.clock.Timestamp {
		t.Fatalf("last payment = %d, want %d", sub.LastPaymentTimestamp, h.clock.Timestamp)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventSubscriptionCharged {
		t.Fatalf("expected charged event, got %+v", h.outbox.events)
	}
}

func TestChargeShortfallLapsesSubscription(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 30, 40)

	err := h.svc.Charge(context.Background(), 0)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	sub := h.subs.subs[0]
	if sub.Status != enums.SubscriptionStatusInsufficientBalance {
		t.Fatalf("status = %s, want insufficient_balance", sub.Status)
	}
	if !sub.PrepaidBalance.Equal(decimal.NewFromInt(30)) {
		t.Fatal("shortfall must not debit escrow")
	}
	if !merchantBalance(h).IsZero() {
		t.Fatal("shortfall must not credit merchant")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventSubscriptionLapsed {
		t.Fatalf("expected lapsed event, got %+v", h.outbox.events)
	}
}

func TestFirstChargeSucceedsSecondLapses(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 60, 40)

	if err := h.svc.Charge(context.Background(), 0); err != nil {
		t.Fatalf("first charge: %v", err)
	}

	err := h.svc.Charge(context.Background(), 0)
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientBalance) {
		t.Fatalf("second charge should lapse, got %v", err)
	}
	sub := h.subs.subs[0]
	if sub.Status != enums.SubscriptionStatusInsufficientBalance {
		t.Fatalf("status = %s, want insufficient_balance", sub.Status)
	}
	if !sub.PrepaidBalance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("prepaid = %s, want 20", sub.PrepaidBalance)
	}

	// a third attempt is rejected without side effects
	err = h.svc.Charge(context.Background(), 0)
	if !pkgerrors.Is(err, pkgerrors.CodeNotActive) {
		t.Fatalf("expected not-active on lapsed subscription, got %v", err)
	}
}

func TestChargeRejectsNonActiveStatuses(t *testing.T) {
	h := newHarness(t)
	for i, status := range []enums.SubscriptionStatus{
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusCancelled,
		enums.SubscriptionStatusInsufficientBalance,
	} {
		id := int64(i)
		seed(h, id, 1000, 40, func(sub *models.Subscription) { sub.Status = status })

		err := h.svc.Charge(context.Background(), id)
		if !pkgerrors.Is(err, pkgerrors.CodeNotActive) {
			t.Fatalf("%s: expected not-active, got %v", status, err)
		}
	}
}

func TestChargeUnknownSubscription(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Charge(context.Background(), 42)
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChargeUsageDebitsWithoutSchedule(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 100, 40, func(sub *models.Subscription) { sub.UsageEnabled = true })

	if err := h.svc.ChargeUsage(asMerchant(), 0, "merchant-1", decimal.NewFromInt(25)); err != nil {
		t.Fatalf("ChargeUsage: %v", err)
	}

	sub := h.subs.subs[0]
	if !sub.PrepaidBalance.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("prepaid = %s, want 75", sub.PrepaidBalance)
	}
	if !merchantBalance(h).Equal(decimal.NewFromInt(25)) {
		t.Fatalf("merchant balance = %s, want 25", merchantBalance(h))
	}
	if sub.LastPaymentTimestamp != 1_600_000_000 {
		t.Fatal("usage charge must not touch the billing schedule")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		t.Fatalf("status = %s, want active", sub.Status)
	}
}

func TestChargeUsageDrainToZeroLapses(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 50, 40, func(sub *models.Subscription) { sub.UsageEnabled = true })

	if err := h.svc.ChargeUsage(asMerchant(), 0, "merchant-1", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("ChargeUsage: %v", err)
	}

	sub := h.subs.subs[0]
	if !sub.PrepaidBalance.IsZero() {
		t.Fatalf("prepaid = %s, want 0", sub.PrepaidBalance)
	}
	if sub.Status != enums.SubscriptionStatusInsufficientBalance {
		t.Fatalf("status = %s, want insufficient_balance after drain", sub.Status)
	}
}

func TestChargeUsageRequiresFlag(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 100, 40)

	err := h.svc.ChargeUsage(asMerchant(), 0, "merchant-1", decimal.NewFromInt(10))
	if !pkgerrors.Is(err, pkgerrors.CodeUsageNotEnabled) {
		t.Fatalf("expected usage-not-enabled, got %v", err)
	}
}

func TestChargeUsageInsufficientPrepaid(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 10, 40, func(sub *models.Subscription) { sub.UsageEnabled = true })

	err := h.svc.ChargeUsage(asMerchant(), 0, "merchant-1", decimal.NewFromInt(25))
	if !pkgerrors.Is(err, pkgerrors.CodeInsufficientPrepaidBalance) {
		t.Fatalf("expected insufficient prepaid, got %v", err)
	}
	if !h.subs.subs[0].PrepaidBalance.Equal(decimal.NewFromInt(10)) {
		t.Fatal("failed usage charge must not debit escrow")
	}
}

func TestChargeUsageWrongMerchant(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 100, 40, func(sub *models.Subscription) { sub.UsageEnabled = true })

	err := h.svc.ChargeUsage(
		auth.WithPrincipal(context.Background(), "merchant-2", false),
		0, "merchant-2", decimal.NewFromInt(10))
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestBatchChargeIsolatesFailures(t *testing.T) {
	h := newHarness(t)
	seed(h, 0, 100, 40)
	seed(h, 1, 10, 40)
	seed(h, 2, 100, 40, func(sub *models.Subscription) { sub.Status = enums.SubscriptionStatusPaused })

	results := h.svc.BatchCharge(context.Background(), []int64{0, 1, 2, 99})
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if !results[0].Success || results[0].ErrorCode != 0 {
		t.Fatalf("id 0 should succeed: %+v", results[0])
	}
	if results[1].Success || results[1].ErrorCode != 1003 {
		t.Fatalf("id 1 should fail insufficient balance: %+v", results[1])
	}
	if results[2].Success || results[2].ErrorCode != 1002 {
		t.Fatalf("id 2 should fail not-active: %+v", results[2])
	}
	if results[3].Success || results[3].ErrorCode != 404 {
		t.Fatalf("id 99 should fail not found: %+v", results[3])
	}

	// the successful entry still committed
	if !h.subs.subs[0].PrepaidBalance.Equal(decimal.NewFromInt(60)) {
		t.Fatal("successful batch entry must commit")
	}
}
