package recovery

import (
	"context"

	"gorm.io/gorm"

	"github.com/meridianpay/subvault/pkg/db/models"
)

// Repository persists the append-only recovery audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, event *models.RecoveryEvent) error
	List(ctx context.Context, limit int) ([]models.RecoveryEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recovery repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, event *models.RecoveryEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) List(ctx context.Context, limit int) ([]models.RecoveryEvent, error) {
	var events []models.RecoveryEvent
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
