package settlement

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/earnings"
	"github.com/apprl/dashboard-backend/internal/payments"
	"github.com/apprl/dashboard-backend/internal/sales"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/metrics"
	"github.com/apprl/dashboard-backend/pkg/types"
)

// Report summarizes one batching run.
type Report struct {
	UsersSeen         int
	PaymentsCreated   int
	PaymentsCancelled int
	EarningsLocked    int
	SkippedBelowMin   int
}

// Batcher aggregates each publisher's qualifying earnings into a single open
// payment. Runs are idempotent: an unchanged earning set keeps its existing
// payment, a changed one cancels the stale payment and writes a fresh
// snapshot. Each publisher is settled in its own transaction so one failure
// never blocks the rest of the run.
type Batcher struct {
	client   *db.Client
	earnings earnings.Repository
	payments payments.Repository
	sales    sales.Repository
	cfg      config.SettlementConfig
	logg     *logger.Logger
	metrics  *metrics.SettlementMetrics
}

// NewBatcher wires a settlement batcher.
func NewBatcher(client *db.Client, earningRepo earnings.Repository, paymentRepo payments.Repository, saleRepo sales.Repository, cfg config.SettlementConfig, logg *logger.Logger, settlementMetrics *metrics.SettlementMetrics) (*Batcher, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if earningRepo == nil {
		return nil, fmt.Errorf("earning repository required")
	}
	if paymentRepo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if saleRepo == nil {
		return nil, fmt.Errorf("sale repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Batcher{
		client:   client,
		earnings: earningRepo,
		payments: paymentRepo,
		sales:    saleRepo,
		cfg:      cfg,
		logg:     logg,
		metrics:  settlementMetrics,
	}, nil
}

// Run settles every publisher with payable earnings. Per-user failures are
// collected and returned together after the run completes.
func (b *Batcher) Run(ctx context.Context) (*Report, error) {
	userIDs, err := b.earnings.ListPayableUsers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payable users")
	}

	report := &Report{UsersSeen: len(userIDs)}
	var runErr error
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := b.settleUser(ctx, userID, report); err != nil {
			userCtx := b.logg.WithUserID(ctx, userID.String())
			b.logg.Error(userCtx, "settling publisher failed", err)
			runErr = multierr.Append(runErr, fmt.Errorf("user %s: %w", userID, err))
		}
	}
	return report, runErr
}

func (b *Batcher) settleUser(ctx context.Context, userID uuid.UUID, report *Report) error {
	return b.client.WithTx(ctx, func(tx *gorm.DB) error {
		earningRepo := b.earnings.WithTx(tx)
		paymentRepo := b.payments.WithTx(tx)

		rows, err := earningRepo.ListPayableByUser(ctx, userID)
		if err != nil {
			return err
		}

		total := decimal.Zero
		ids := make(types.UUIDList, 0, len(rows))
		for i := range rows {
			total = total.Add(rows[i].Amount)
			ids = append(ids, rows[i].ID)
		}
		snapshot := ids.Sorted()

		existing, err := paymentRepo.FindActiveByUser(ctx, userID)
		if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// The total has to clear the minimum, landing exactly on it is not
		// enough.
		if total.LessThanOrEqual(b.cfg.MinPayout) {
			report.SkippedBelowMin++
			// An open payment below the threshold is stale.
			if existing != nil {
				if err := b.cancelPayment(ctx, paymentRepo, userID, report); err != nil {
					return err
				}
			}
			return nil
		}

		if existing != nil && existing.Amount.Equal(total) && snapshotEqual(existing.EarningIDs, snapshot) {
			return nil
		}

		if err := earningRepo.MarkReady(ctx, snapshot); err != nil {
			return err
		}
		b.metrics.AddEarningsLocked(len(snapshot))
		report.EarningsLocked += len(snapshot)

		if existing != nil {
			if err := b.cancelPayment(ctx, paymentRepo, userID, report); err != nil {
				return err
			}
		}

		payment := &models.Payment{
			ID:         uuid.New(),
			UserID:     userID,
			Amount:     total,
			Currency:   b.cfg.Currency,
			EarningIDs: snapshot,
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return err
		}
		b.metrics.IncPaymentCreated()
		report.PaymentsCreated++

		// Sales staged in full move forward in the lifecycle.
		lockedSales, err := earningRepo.FullyLockedSaleIDs(ctx, snapshot)
		if err != nil {
			return err
		}
		if err := b.sales.WithTx(tx).UpdateStatus(ctx, lockedSales, enums.SaleStatusReadyForPayment); err != nil {
			return err
		}
		for _, saleID := range lockedSales {
			if err := earningRepo.PropagateStatus(ctx, saleID, enums.SaleStatusReadyForPayment); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Batcher) cancelPayment(ctx context.Context, paymentRepo payments.Repository, userID uuid.UUID, report *Report) error {
	cancelled, err := paymentRepo.CancelUnpaidForUser(ctx, userID)
	if err != nil {
		return err
	}
	report.PaymentsCancelled += int(cancelled)
	for i := int64(0); i < cancelled; i++ {
		b.metrics.IncPaymentCancelled()
	}
	return nil
}

func snapshotEqual(a, b types.UUIDList) bool {
	if len(a) != len(b) {
		return false
	}
	sortedA := a.Sorted()
	for i := range sortedA {
		if sortedA[i] != b[i] {
			return false
		}
	}
	return true
}
