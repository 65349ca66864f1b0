package subscriptions

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meridianpay/subvault/pkg/db/models"
	"github.com/meridianpay/subvault/pkg/enums"
)

// Repository manages persistence for subscriptions and the id counter.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// NextID mints the next subscription id under a row lock. Ids start
	// at 0 and are never reused, including across cancellations.
	NextID(ctx context.Context) (int64, error)

	Create(ctx context.Context, sub *models.Subscription) error
	Get(ctx context.Context, id int64) (*models.Subscription, error)
	// GetForUpdate row-locks the subscription so concurrent charges,
	// deposits, and status changes serialize per subscription.
	GetForUpdate(ctx context.Context, id int64) (*models.Subscription, error)
	Update(ctx context.Context, sub *models.Subscription) error

	// ListChargeableIDs returns ids of active subscriptions whose next
	// charge time is at or before now, oldest due first.
	ListChargeableIDs(ctx context.Context, now uint64, limit int) ([]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriptions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) NextID(ctx context.Context) (int64, error) {
	var next int64
	res := r.db.WithContext(ctx).
		Raw(`UPDATE counters SET value = value + 1 WHERE name = ? RETURNING value - 1`,
			models.CounterSubscriptionID).
		Scan(&next)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("counter %q not seeded", models.CounterSubscriptionID)
	}
	return next, nil
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return errors.New("subscription required")
	}
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Get(ctx context.Context, id int64) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return errors.New("subscription required")
	}
	return r.db.WithContext(ctx).Save(sub).Error
}

func (r *repository) ListChargeableIDs(ctx context.Context, now uint64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("status = ?", enums.SubscriptionStatusActive).
		Where("last_payment_timestamp + interval_seconds <= ?", now).
		Order("last_payment_timestamp + interval_seconds ASC").
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
