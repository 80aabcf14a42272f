package sales

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/distribution"
	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/metrics"
	"github.com/apprl/dashboard-backend/pkg/pagination"
)

// Service owns the sale lifecycle: ingesting imports, manual accept and
// reject, and re-running distribution. Every mutation keeps the sale's
// earnings in sync inside a single transaction.
type Service interface {
	Ingest(ctx context.Context, input IngestSaleInput) (*models.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*SaleDetail, error)
	List(ctx context.Context, params ListSalesParams) (*ListSalesResult, error)
	Accept(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	Reject(ctx context.Context, id uuid.UUID, note string) (*models.Sale, error)
	Redistribute(ctx context.Context, id uuid.UUID) (*models.Sale, error)
}

type service struct {
	client   *db.Client
	sales    Repository
	earnings earnings.Repository
	engine   *distribution.Engine
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

// NewService wires a sale lifecycle service.
func NewService(client *db.Client, saleRepo Repository, earningRepo earnings.Repository, engine *distribution.Engine, logg *logger.Logger, settlementMetrics *metrics.SettlementMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if saleRepo == nil {
		return nil, fmt.Errorf("sale repository required")
	}
	if earningRepo == nil {
		return nil, fmt.Errorf("earning repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("distribution engine required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client:   client,
		sales:    saleRepo,
		earnings: earningRepo,
		engine:   engine,
		logg:     logg,
		metrics:  settlementMetrics,
	}, nil
}

// ingestStatuses are the lifecycle stages a network import may set. Payment
// stages are reachable only through the settlement batcher.
var ingestStatuses = map[enums.SaleStatus]bool{
	enums.SaleStatusIncomplete: true,
	enums.SaleStatusDeclined:   true,
	enums.SaleStatusPending:    true,
	enums.SaleStatusConfirmed:  true,
}

func (s *service) Ingest(ctx context.Context, input IngestSaleInput) (*models.Sale, error) {
	if err := validateIngest(input); err != nil {
		return nil, err
	}

	var result *models.Sale
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		saleRepo := s.sales.WithTx(tx)

		existing, err := saleRepo.FindByNetworkRef(ctx, input.Network, input.NetworkSaleID)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up sale")
		}

		if existing == nil {
			result, err = s.createSale(ctx, tx, input)
			return err
		}
		result, err = s.updateSale(ctx, tx, existing, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) createSale(ctx context.Context, tx *gorm.DB, input IngestSaleInput) (*models.Sale, error) {
	sale := &models.Sale{
		Network:                  input.Network,
		NetworkSaleID:            input.NetworkSaleID,
		VendorID:                 input.VendorID,
		PublisherID:              input.PublisherID,
		SaleType:                 input.SaleType,
		Status:                   input.Status,
		IsPromo:                  input.IsPromo,
		IsReferralSale:           input.IsReferralSale,
		ReferralUserID:           input.ReferralUserID,
		CommissionAmount:         input.CommissionAmount.Round(2),
		OriginalCommissionAmount: input.CommissionAmount.Round(2),
		Currency:                 input.Currency,
		SaleDate:                 input.SaleDate,
	}
	sale.ID = uuid.New()
	if err := s.sales.WithTx(tx).Create(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating sale")
	}
	if err := s.materialize(ctx, tx, sale, false); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) updateSale(ctx context.Context, tx *gorm.DB, sale *models.Sale, input IngestSaleInput) (*models.Sale, error) {
	ctx = s.logg.WithSaleID(ctx, sale.ID.String())

	// Once confirmed the financial fields are frozen. The network can still
	// move the lifecycle in either direction until the sale enters a payment
	// stage; after that the import no longer has a say.
	if sale.Status.AtLeast(enums.SaleStatusConfirmed) {
		if sale.Status.AtLeast(enums.SaleStatusReadyForPayment) {
			s.logg.Warn(ctx, "re-import ignored for settling sale")
			return sale, nil
		}
		if input.Status == sale.Status {
			return sale, nil
		}
		if !input.Status.AtLeast(enums.SaleStatusConfirmed) {
			locked, err := s.earnings.WithTx(tx).AnyLockedBySale(ctx, sale.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking earnings")
			}
			if locked {
				return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "earnings are locked for payment")
			}
		}
		return s.transition(ctx, tx, sale, input.Status)
	}

	sale.VendorID = input.VendorID
	sale.PublisherID = input.PublisherID
	sale.SaleType = input.SaleType
	sale.Status = input.Status
	sale.IsReferralSale = input.IsReferralSale
	sale.ReferralUserID = input.ReferralUserID
	sale.CommissionAmount = input.CommissionAmount.Round(2)
	sale.Currency = input.Currency
	if input.SaleDate != nil {
		sale.SaleDate = input.SaleDate
	}

	if err := s.sales.WithTx(tx).Save(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating sale")
	}

	// Below confirmation every re-import rewrites the earning set from
	// scratch, even when nothing visibly changed. A cut created since the
	// last import gets picked up this way.
	if err := s.materialize(ctx, tx, sale, true); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SaleDetail, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading sale")
	}
	rows, err := s.earnings.ListBySale(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading earnings")
	}
	return &SaleDetail{Sale: sale, Earnings: rows}, nil
}

func (s *service) List(ctx context.Context, params ListSalesParams) (*ListSalesResult, error) {
	query := listSalesParams{
		PublisherID: params.PublisherID,
		Status:      params.Status,
		Network:     params.Network,
		Limit:       params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.sales.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing sales")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListSalesResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Accept(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var result *models.Sale
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.lockSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status == enums.SaleStatusConfirmed {
			result = sale
			return nil
		}
		if sale.Status.AtLeast(enums.SaleStatusReadyForPayment) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already settling")
		}
		result, err = s.transition(ctx, tx, sale, enums.SaleStatusConfirmed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, note string) (*models.Sale, error) {
	var result *models.Sale
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.lockSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status == enums.SaleStatusDeclined {
			result = sale
			return nil
		}
		if sale.Status.AtLeast(enums.SaleStatusReadyForPayment) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already settling")
		}
		locked, err := s.earnings.WithTx(tx).AnyLockedBySale(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking earnings")
		}
		if locked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "earnings are locked for payment")
		}
		if trimmed := strings.TrimSpace(note); trimmed != "" {
			sale.RejectionNote = &trimmed
		}
		result, err = s.transition(ctx, tx, sale, enums.SaleStatusDeclined)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Redistribute(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var result *models.Sale
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		sale, err := s.lockSale(ctx, tx, id)
		if err != nil {
			return err
		}
		if sale.Status.AtLeast(enums.SaleStatusReadyForPayment) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already settling")
		}
		if err := s.materialize(ctx, tx, sale, true); err != nil {
			return err
		}
		result = sale
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) lockSale(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Sale, error) {
	sale, err := s.sales.WithTx(tx).FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading sale")
	}
	return sale, nil
}

// transition moves the sale to the target status and propagates it to every
// earning of the sale, locked ones included. Amounts never change here.
func (s *service) transition(ctx context.Context, tx *gorm.DB, sale *models.Sale, status enums.SaleStatus) (*models.Sale, error) {
	sale.Status = status
	if err := s.sales.WithTx(tx).Save(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating sale status")
	}
	if err := s.earnings.WithTx(tx).PropagateStatus(ctx, sale.ID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "propagating sale status")
	}
	return sale, nil
}

// materialize computes the earning set for the sale and swaps it in. The new
// set is computed before anything is deleted, so a configuration error keeps
// whatever earnings the sale already has. When rewrite is set and locked
// earnings exist, amounts are frozen and only the status propagates.
func (s *service) materialize(ctx context.Context, tx *gorm.DB, sale *models.Sale, rewrite bool) error {
	earningRepo := s.earnings.WithTx(tx)

	if rewrite {
		locked, err := earningRepo.AnyLockedBySale(ctx, sale.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking earnings")
		}
		if locked {
			s.logg.Warn(s.logg.WithSaleID(ctx, sale.ID.String()), "earnings locked, distribution skipped")
			return earningRepo.PropagateStatus(ctx, sale.ID, sale.Status)
		}
	}

	result, err := s.engine.WithTx(tx).Materialize(ctx, sale)
	if err != nil {
		if pkgerrors.IsRecoverable(err) {
			ctx = s.logg.WithSaleID(ctx, sale.ID.String())
			s.logg.Error(ctx, "distribution failed, earnings deferred", err)
			s.metrics.IncDistributionFailure(string(pkgerrors.As(err).Code()))
			if rewrite {
				return earningRepo.PropagateStatus(ctx, sale.ID, sale.Status)
			}
			return nil
		}
		return err
	}

	if rewrite {
		if err := earningRepo.DeleteUnlockedBySale(ctx, sale.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing earnings")
		}
	}
	if err := earningRepo.CreateBatch(ctx, result.Earnings); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating earnings")
	}
	s.metrics.AddEarningsMaterialized(len(result.Earnings))

	if result.CutApplied != nil {
		sale.CutApplied = result.CutApplied
		if err := s.sales.WithTx(tx).Save(ctx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording applied cut")
		}
	}
	return nil
}

func validateIngest(input IngestSaleInput) error {
	if strings.TrimSpace(input.Network) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "network is required")
	}
	if strings.TrimSpace(input.NetworkSaleID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "network sale id is required")
	}
	if !input.SaleType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sale type %q", input.SaleType))
	}
	if !ingestStatuses[input.Status] {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ingest status %q", input.Status))
	}
	if input.CommissionAmount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission amount must not be negative")
	}
	if input.IsPromo && input.PublisherID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo sale requires a publisher")
	}
	return nil
}
