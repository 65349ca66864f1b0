package sweep

import (
	"context"
	"fmt"

	"github.com/meridianpay/subvault/internal/charges"
	"github.com/meridianpay/subvault/pkg/clock"
	pkgerrors "github.com/meridianpay/subvault/pkg/errors"
	"github.com/meridianpay/subvault/pkg/logger"
	"github.com/meridianpay/subvault/pkg/metrics"
)

const defaultChargeBatchSize = 250

type dueLister interface {
	ListChargeableIDs(ctx context.Context, now uint64, limit int) ([]int64, error)
}

type batchCharger interface {
	BatchCharge(ctx context.Context, ids []int64) []charges.ChargeResult
}

// ChargeJobParams configure the scheduled charge sweep.
type ChargeJobParams struct {
	Logger        *logger.Logger
	Subscriptions dueLister
	Charger       batchCharger
	Clock         clock.Clock
	Metrics       *metrics.ChargeMetrics
	BatchSize     int
}

// NewChargeJob builds the job that charges every due subscription.
func NewChargeJob(params ChargeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription lister required")
	}
	if params.Charger == nil {
		return nil, fmt.Errorf("batch charger required")
	}
	if params.Clock == nil {
		return nil, fmt.Errorf("clock required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultChargeBatchSize
	}
	return &chargeJob{
		logg:      params.Logger,
		subs:      params.Subscriptions,
		charger:   params.Charger,
		clk:       params.Clock,
		metrics:   params.Metrics,
		batchSize: batchSize,
	}, nil
}

type chargeJob struct {
	logg      *logger.Logger
	subs      dueLister
	charger   batchCharger
	clk       clock.Clock
	metrics   *metrics.ChargeMetrics
	batchSize int
}

func (j *chargeJob) Name() string { return "charge-sweep" }

func (j *chargeJob) Run(ctx context.Context) error {
	now := j.clk.Now()
	ids, err := j.subs.ListChargeableIDs(ctx, now, j.batchSize)
	if err != nil {
		return fmt.Errorf("listing due subscriptions: %w", err)
	}
	if len(ids) == 0 {
		j.logg.Debug(ctx, "no subscriptions due")
		return nil
	}
	if j.metrics != nil {
		j.metrics.ObserveBatchSize(len(ids))
	}

	lapseCode := pkgerrors.MetadataFor(pkgerrors.CodeInsufficientBalance).WireCode
	var succeeded, lapsed, failed int
	for _, result := range j.charger.BatchCharge(ctx, ids) {
		switch {
		case result.Success:
			succeeded++
			j.recordOutcome("success")
		case result.ErrorCode == lapseCode:
			lapsed++
			j.recordOutcome("lapsed")
			if j.metrics != nil {
				j.metrics.IncLapsed()
			}
		default:
			failed++
			j.recordOutcome("failure")
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":       len(ids),
		"succeeded": succeeded,
		"lapsed":    lapsed,
		"failed":    failed,
	}), "charge sweep complete")
	return nil
}

func (j *chargeJob) recordOutcome(outcome string) {
	if j.metrics == nil {
		return
	}
	j.metrics.IncOutcome(outcome)
}
