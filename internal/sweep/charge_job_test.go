package sweep

import (
	"context"
	"testing"

	"github.com/meridianpay/subvault/internal/charges"
	"github.com/meridianpay/subvault/pkg/clock"
)

type fakeLister struct {
	ids     []int64
	sawNow  uint64
	sawCap  int
	listErr error
}

func (f *fakeLister) ListChargeableIDs(ctx context.Context, now uint64, limit int) ([]int64, error) {
	f.sawNow = now
	f.sawCap = limit
	return f.ids, f.listErr
}

type fakeCharger struct {
	results []charges.ChargeResult
	sawIDs  []int64
}

func (f *fakeCharger) BatchCharge(ctx context.Context, ids []int64) []charges.ChargeResult {
	f.sawIDs = ids
	return f.results
}

func TestChargeJobChargesDueSubscriptions(t *testing.T) {
	lister := &fakeLister{ids: []int64{0, 1, 2}}
	charger := &fakeCharger{results: []charges.ChargeResult{
		{SubscriptionID: 0, Success: true},
		{SubscriptionID: 1, Success: false, ErrorCode: 1003},
		{SubscriptionID: 2, Success: false, ErrorCode: 1002},
	}}
	job, err := NewChargeJob(ChargeJobParams{
		Logger:        testLogger(),
		Subscriptions: lister,
		Charger:       charger,
		Clock:         &clock.Fixed{Timestamp: 1_700_000_000},
		BatchSize:     50,
	})
	if err != nil {
		t.Fatalf("NewChargeJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if lister.sawNow != 1_700_000_000 || lister.sawCap != 50 {
		t.Fatalf("lister saw now=%d cap=%d", lister.sawNow, lister.sawCap)
	}
	if len(charger.sawIDs) != 3 {
		t.Fatalf("charger saw %d ids, want 3", len(charger.sawIDs))
	}
}

func TestChargeJobNoDueSubscriptions(t *testing.T) {
	charger := &fakeCharger{}
	job, err := NewChargeJob(ChargeJobParams{
		Logger:        testLogger(),
		Subscriptions: &fakeLister{},
		Charger:       charger,
		Clock:         &clock.Fixed{Timestamp: 1},
	})
	if err != nil {
		t.Fatalf("NewChargeJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if charger.sawIDs != nil {
		t.Fatal("charger must not run with no due subscriptions")
	}
}
