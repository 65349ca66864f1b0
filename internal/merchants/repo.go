package merchants

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meridianpay/subvault/pkg/db/models"
)

// Repository manages persistence for merchant configs and balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error)
	UpsertConfig(ctx context.Context, config *models.MerchantConfig) error

	GetBalance(ctx context.Context, merchant string) (*models.MerchantBalance, error)
	// GetBalanceForUpdate row-locks the balance so concurrent charges and
	// withdrawals against the same merchant serialize.
	GetBalanceForUpdate(ctx context.Context, merchant string) (*models.MerchantBalance, error)
	UpsertBalance(ctx context.Context, balance *models.MerchantBalance) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a merchants repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetConfig(ctx context.Context, merchant string) (*models.MerchantConfig, error) {
	var config models.MerchantConfig
	if err := r.db.WithContext(ctx).
		Where("merchant = ?", merchant).
		First(&config).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *repository) UpsertConfig(ctx context.Context, config *models.MerchantConfig) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "merchant"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"version", "min_subscription_amount", "default_interval_seconds", "updated_at",
			}),
		}).
		Create(config).Error
}

func (r *repository) GetBalance(ctx context.Context, merchant string) (*models.MerchantBalance, error) {
	var balance models.MerchantBalance
	if err := r.db.WithContext(ctx).
		Where("merchant = ?", merchant).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) GetBalanceForUpdate(ctx context.Context, merchant string) (*models.MerchantBalance, error) {
	var balance models.MerchantBalance
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("merchant = ?", merchant).
		First(&balance).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) UpsertBalance(ctx context.Context, balance *models.MerchantBalance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "merchant"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		Create(balance).Error
}
