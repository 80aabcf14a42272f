package sales

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/repo"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	"github.com/apprl/dashboard-backend/pkg/pagination"
)

// Repository manages persistence for sale rows. Sales are keyed externally by
// (network, network sale id) so re-imports update in place.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sale *models.Sale) error
	Save(ctx context.Context, sale *models.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	FindByNetworkRef(ctx context.Context, network, networkSaleID string) (*models.Sale, error)
	List(ctx context.Context, params listSalesParams) ([]models.Sale, *pagination.Cursor, error)
	ListWithoutEarnings(ctx context.Context, limit int) ([]models.Sale, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.SaleStatus) error
}

type listSalesParams struct {
	PublisherID *uuid.UUID
	Status      *enums.SaleStatus
	Network     string
	Limit       int
	Cursor      *pagination.Cursor
}

type repository struct {
	base repo.Base
}

// NewRepository returns a sale repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, sale *models.Sale) error {
	return r.base.DB(ctx).Create(sale).Error
}

func (r *repository) Save(ctx context.Context, sale *models.Sale) error {
	return r.base.DB(ctx).Save(sale).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.base.DB(ctx).Where("id = ?", id).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindByNetworkRef(ctx context.Context, network, networkSaleID string) (*models.Sale, error) {
	var sale models.Sale
	if err := r.base.DB(ctx).
		Where("network = ? AND network_sale_id = ?", network, networkSaleID).
		First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) List(ctx context.Context, params listSalesParams) ([]models.Sale, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.base.DB(ctx).Model(&models.Sale{})
	if params.PublisherID != nil {
		query = query.Where("publisher_id = ?", *params.PublisherID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Network != "" {
		query = query.Where("network = ?", params.Network)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var result []models.Sale
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

func (r *repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.SaleStatus) error {
	if len(ids) == 0 {
		return nil
	}
	return r.base.DB(ctx).
		Model(&models.Sale{}).
		Where("id IN ?", ids).
		Update("status", status).Error
}

// ListWithoutEarnings returns sales that never materialized earnings, oldest
// first, for the redistribution sweep.
func (r *repository) ListWithoutEarnings(ctx context.Context, limit int) ([]models.Sale, error) {
	var result []models.Sale
	query := r.base.DB(ctx).
		Where("NOT EXISTS (SELECT 1 FROM earnings WHERE earnings.sale_id = sales.id)").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}
