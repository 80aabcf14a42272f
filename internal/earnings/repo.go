package earnings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
)

// Repository manages persistence for earning rows. Deletes and rewrites only
// ever touch unlocked earnings; locked rows are frozen for payment.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, earnings []models.Earning) error
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Earning, error)
	DeleteUnlockedBySale(ctx context.Context, saleID uuid.UUID) error
	AnyLockedBySale(ctx context.Context, saleID uuid.UUID) (bool, error)
	PropagateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error
	ListPayableUsers(ctx context.Context) ([]uuid.UUID, error)
	ListPayableByUser(ctx context.Context, userID uuid.UUID) ([]models.Earning, error)
	MarkReady(ctx context.Context, ids []uuid.UUID) error
	MarkComplete(ctx context.Context, ids []uuid.UUID) error
	SettledSaleIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	FullyLockedSaleIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an earning repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, earnings []models.Earning) error {
	if len(earnings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&earnings).Error
}

func (r *repository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]models.Earning, error) {
	var result []models.Earning
	if err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("created_at ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) DeleteUnlockedBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("sale_id = ? AND paid_state = ?", saleID, enums.PaidStatePending).
		Delete(&models.Earning{}).Error
}

func (r *repository) AnyLockedBySale(ctx context.Context, saleID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("sale_id = ? AND paid_state IN ?", saleID, []enums.PaidState{enums.PaidStateReady, enums.PaidStateComplete}).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) PropagateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("sale_id = ?", saleID).
		Update("status", status).Error
}

// ListPayableUsers returns the distinct publishers that hold unpaid earnings
// on confirmed-or-later sales. The house share carries a NULL user and never
// enters payment batching.
func (r *repository) ListPayableUsers(ctx context.Context) ([]uuid.UUID, error) {
	var userIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Distinct("user_id").
		Where("user_id IS NOT NULL").
		Where("status IN ?", enums.SaleStatusesAtLeast(enums.SaleStatusConfirmed)).
		Where("paid_state IN ?", []enums.PaidState{enums.PaidStatePending, enums.PaidStateReady}).
		Pluck("user_id", &userIDs).Error; err != nil {
		return nil, err
	}
	return userIDs, nil
}

func (r *repository) ListPayableByUser(ctx context.Context, userID uuid.UUID) ([]models.Earning, error) {
	var result []models.Earning
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status IN ?", enums.SaleStatusesAtLeast(enums.SaleStatusConfirmed)).
		Where("paid_state IN ?", []enums.PaidState{enums.PaidStatePending, enums.PaidStateReady}).
		Order("created_at ASC").
		Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) MarkReady(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("id IN ? AND paid_state <> ?", ids, enums.PaidStateComplete).
		Update("paid_state", enums.PaidStateReady).Error
}

func (r *repository) MarkComplete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Where("id IN ?", ids).
		Update("paid_state", enums.PaidStateComplete).Error
}

// SettledSaleIDs returns the sales among the given earnings whose payable
// earnings are all complete. House shares carry no user and do not block
// settlement.
func (r *repository) SettledSaleIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var saleIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Distinct("sale_id").
		Where("id IN ?", ids).
		Where("NOT EXISTS (SELECT 1 FROM earnings e2 WHERE e2.sale_id = earnings.sale_id AND e2.user_id IS NOT NULL AND e2.paid_state <> ?)", enums.PaidStateComplete).
		Pluck("sale_id", &saleIDs).Error; err != nil {
		return nil, err
	}
	return saleIDs, nil
}

// FullyLockedSaleIDs returns the sales among the given earnings with no
// payable earning still pending, meaning the whole sale is staged for
// payment.
func (r *repository) FullyLockedSaleIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var saleIDs []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Earning{}).
		Distinct("sale_id").
		Where("id IN ?", ids).
		Where("NOT EXISTS (SELECT 1 FROM earnings e2 WHERE e2.sale_id = earnings.sale_id AND e2.user_id IS NOT NULL AND e2.paid_state = ?)", enums.PaidStatePending).
		Pluck("sale_id", &saleIDs).Error; err != nil {
		return nil, err
	}
	return saleIDs, nil
}
