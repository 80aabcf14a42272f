package payments

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/internal/sales"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/pagination"
)

// ListParams filters the payment listing. Cancelled payments are never
// returned.
type ListParams struct {
	UserID *uuid.UUID
	Paid   *bool
	Limit  int
	Cursor string
}

// ListResult is one page of payments plus the cursor for the next page.
type ListResult struct {
	Items  []models.Payment
	Cursor string
}

// Service exposes payment reads and the paid transition. Payments are
// created exclusively by the settlement batcher.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*models.Payment, error)
}

type service struct {
	client   *db.Client
	payments Repository
	earnings earnings.Repository
	sales    sales.Repository
	logg     *logger.Logger
}

// NewService wires a payment service.
func NewService(client *db.Client, paymentRepo Repository, earningRepo earnings.Repository, saleRepo sales.Repository, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if earningRepo == nil {
		return nil, fmt.Errorf("earning repository required")
	}
	if saleRepo == nil {
		return nil, fmt.Errorf("sale repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{client: client, payments: paymentRepo, earnings: earningRepo, sales: saleRepo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listPaymentsParams{
		UserID: params.UserID,
		Paid:   params.Paid,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.payments.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payments")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// MarkPaid finalizes a payment: the payment flips to paid and every earning
// in its snapshot completes. Calling it twice is a no-op; a cancelled payment
// can never be paid.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var result *models.Payment
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.payments.WithTx(tx)

		payment, err := paymentRepo.FindByID(ctx, id)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading payment")
		}
		if payment.Cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is cancelled")
		}
		if payment.Paid {
			result = payment
			return nil
		}

		now := time.Now().UTC()
		payment.Paid = true
		payment.PaidAt = &now
		if err := paymentRepo.Save(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment")
		}
		earningRepo := s.earnings.WithTx(tx)
		if err := earningRepo.MarkComplete(ctx, payment.EarningIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing earnings")
		}

		// Sales whose payable earnings are now all complete move to paid.
		settled, err := earningRepo.SettledSaleIDs(ctx, payment.EarningIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving settled sales")
		}
		if len(settled) > 0 {
			if err := s.sales.WithTx(tx).UpdateStatus(ctx, settled, enums.SaleStatusPaid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating settled sales")
			}
			for _, saleID := range settled {
				if err := earningRepo.PropagateStatus(ctx, saleID, enums.SaleStatusPaid); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "propagating paid status")
				}
			}
		}

		result = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
