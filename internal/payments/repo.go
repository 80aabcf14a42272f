package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/pagination"
)

// Repository manages persistence for payment rows. The partial unique index
// on (user_id) over active rows enforces one open payment per publisher.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	Save(ctx context.Context, payment *models.Payment) error
	CancelUnpaidForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	List(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error)
}

type listPaymentsParams struct {
	UserID *uuid.UUID
	Paid   *bool
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND paid = ? AND cancelled = ?", userID, false, false).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// CancelUnpaidForUser marks every open payment of the user cancelled so a
// fresh batch can take its place.
func (r *repository) CancelUnpaidForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("user_id = ? AND paid = ? AND cancelled = ?", userID, false, false).
		Update("cancelled", true)
	return result.RowsAffected, result.Error
}

func (r *repository) List(ctx context.Context, params listPaymentsParams) ([]models.Payment, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("cancelled = ?", false)
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Paid != nil {
		query = query.Where("paid = ?", *params.Paid)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var result []models.Payment
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&result).Error; err != nil {
		return nil, nil, err
	}

	if len(result) > normalized {
		next := result[normalized]
		result = result[:normalized]
		return result, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return result, nil, nil
}
