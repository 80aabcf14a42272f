package publishers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/pkg/db/models"
)

// Repository manages persistence for publisher accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, id uuid.UUID) (*models.Publisher, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Publisher, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a publisher repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	var publisher models.Publisher
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&publisher).Error; err != nil {
		return nil, err
	}
	return &publisher, nil
}

func (r *repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Publisher, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var result []models.Publisher
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
