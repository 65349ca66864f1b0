package vault

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/meridianpay/subvault/pkg/db/models"
)

// Repository manages persistence for the single vault_params row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context) (*models.VaultParams, error)
	Upsert(ctx context.Context, params *models.VaultParams) error
	UpdateMinTopup(ctx context.Context, params *models.VaultParams) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a vault repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Get(ctx context.Context) (*models.VaultParams, error) {
	var params models.VaultParams
	if err := r.db.WithContext(ctx).
		Where("id = ?", models.VaultParamsID).
		First(&params).Error; err != nil {
		return nil, err
	}
	return &params, nil
}

func (r *repository) Upsert(ctx context.Context, params *models.VaultParams) error {
	params.ID = models.VaultParamsID
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token_address", "admin", "min_topup", "updated_at"}),
		}).
		Create(params).Error
}

func (r *repository) UpdateMinTopup(ctx context.Context, params *models.VaultParams) error {
	return r.db.WithContext(ctx).
		Model(&models.VaultParams{}).
		Where("id = ?", models.VaultParamsID).
		Update("min_topup", params.MinTopup).Error
}
