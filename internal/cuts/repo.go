package cuts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/pkg/db/models"
)

// Repository manages persistence for revenue-share configuration rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindForGroupVendor(ctx context.Context, groupID, vendorID uuid.UUID) (*models.Cut, error)
	Upsert(ctx context.Context, cut *models.Cut) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cut repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindForGroupVendor(ctx context.Context, groupID, vendorID uuid.UUID) (*models.Cut, error) {
	var cut models.Cut
	if err := r.db.WithContext(ctx).
		Where("group_id = ? AND vendor_id = ?", groupID, vendorID).
		First(&cut).Error; err != nil {
		return nil, err
	}
	return &cut, nil
}

func (r *repository) Upsert(ctx context.Context, cut *models.Cut) error {
	existing, err := r.FindForGroupVendor(ctx, cut.GroupID, cut.VendorID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return r.db.WithContext(ctx).Create(cut).Error
		}
		return err
	}
	cut.ID = existing.ID
	return r.db.WithContext(ctx).Save(cut).Error
}
