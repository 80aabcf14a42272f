package distribution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/cuts"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
)

// Result is the outcome of materializing one sale: the earning rows to
// persist and the publisher cut that was applied, for auditing on the sale.
type Result struct {
	Earnings   []models.Earning
	CutApplied *decimal.Decimal
}

// Engine turns one sale into its complete set of earning rows. It never
// writes; the sale lifecycle service persists the result inside its own
// transaction. Amounts are rounded half-up to cents, with the larger side of
// every split computed by subtraction so each split sums exactly.
type Engine struct {
	resolver *cuts.Resolver
	cfg      config.SettlementConfig
	logg     *logger.Logger
}

// NewEngine wires a distribution engine with the provided cut resolver.
func NewEngine(resolver *cuts.Resolver, cfg config.SettlementConfig, logg *logger.Logger) (*Engine, error) {
	if resolver == nil {
		return nil, fmt.Errorf("cut resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{resolver: resolver, cfg: cfg, logg: logg}, nil
}

// WithTx rebinds the engine's configuration reads to the given transaction.
func (e *Engine) WithTx(tx *gorm.DB) *Engine {
	if tx == nil {
		return e
	}
	clone := *e
	clone.resolver = e.resolver.WithTx(tx)
	return &clone
}

// Materialize computes the full earning set for a sale. Every earning carries
// the sale's current status so lifecycle propagation starts consistent.
func (e *Engine) Materialize(ctx context.Context, sale *models.Sale) (*Result, error) {
	ctx = e.logg.WithSaleID(ctx, sale.ID.String())

	if sale.IsPromo {
		return e.materializePromo(ctx, sale)
	}
	if sale.IsHouseSale() {
		return e.materializeHouse(sale), nil
	}
	return e.materializeCommission(ctx, sale)
}

// materializePromo emits the single fixed signup bonus for a referred
// signup. Promo sales carry no vendor commission to split.
func (e *Engine) materializePromo(ctx context.Context, sale *models.Sale) (*Result, error) {
	if sale.PublisherID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "promo sale requires a publisher")
	}
	bonus := e.cfg.SignupBonus.Round(2)
	return &Result{
		Earnings: []models.Earning{
			e.newEarning(sale, sale.PublisherID, enums.EarningTypeReferralSignupCommission, bonus, nil),
		},
	}, nil
}

// materializeHouse books the entire commission to the house when the sale has
// no publisher attribution.
func (e *Engine) materializeHouse(sale *models.Sale) *Result {
	return &Result{
		Earnings: []models.Earning{
			e.newEarning(sale, nil, enums.EarningTypeApprlCommission, sale.CommissionAmount.Round(2), nil),
		},
	}
}

func (e *Engine) materializeCommission(ctx context.Context, sale *models.Sale) (*Result, error) {
	resolution, err := e.resolver.Resolve(ctx, *sale.PublisherID, sale.VendorID)
	if err != nil {
		return nil, err
	}
	if !resolution.CutFound {
		details := map[string]any{"publisher_id": sale.PublisherID.String()}
		if sale.VendorID != nil {
			details["vendor_id"] = sale.VendorID.String()
		}
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "no cut configured for publisher and vendor").
			WithDetails(details)
	}

	commission := sale.CommissionAmount.Round(2)
	publisherShare := commission.Mul(resolution.EffectiveCut).Round(2)
	houseShare := commission.Sub(publisherShare)

	var earnings []models.Earning

	if resolution.Publisher.HasOwnerNetwork() {
		publisherShare, err = e.distributeTribute(ctx, resolution.Publisher, publisherShare, sale, e.cfg.MaxTributeDepth, &earnings)
		if err != nil {
			return nil, err
		}
	}

	earnings = append(earnings,
		e.newEarning(sale, nil, enums.EarningTypeApprlCommission, houseShare, sale.PublisherID),
		e.newEarning(sale, sale.PublisherID, publisherEarningType(sale.SaleType), publisherShare, nil),
	)

	if err := e.checkSum(commission, earnings); err != nil {
		return nil, err
	}

	referral, err := e.referralEarning(ctx, sale, commission)
	if err != nil {
		return nil, err
	}
	if referral != nil {
		earnings = append(earnings, *referral)
	}

	cutApplied := resolution.EffectiveCut
	return &Result{Earnings: earnings, CutApplied: &cutApplied}, nil
}

// distributeTribute walks the ownership chain upward, emitting one tribute
// earning per owner and returning what remains for the originating
// publisher. Recursion stops at a missing owner, a self-reference, or the
// configured depth bound, so a cyclic ownership graph still terminates.
func (e *Engine) distributeTribute(ctx context.Context, user *models.Publisher, amount decimal.Decimal, sale *models.Sale, depth int, earnings *[]models.Earning) (decimal.Decimal, error) {
	if depth <= 0 || !user.HasOwnerNetwork() {
		return amount, nil
	}

	owner, err := e.resolver.Publisher(ctx, *user.OwnerNetworkID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConfig) {
			e.logg.Warn(e.logg.WithPublisherID(ctx, user.OwnerNetworkID.String()), "owner network missing, tribute skipped")
			return amount, nil
		}
		return decimal.Zero, err
	}

	fraction, err := e.resolver.TributeFraction(ctx, user, owner, sale.VendorID)
	if err != nil {
		return decimal.Zero, err
	}

	tribute := amount.Mul(fraction).Round(2)
	remainder := amount.Sub(tribute)

	// The owner may owe tribute further up; their earning is what survives
	// of the tribute after the chain above takes its share.
	ownerShare := tribute
	if owner.HasOwnerNetwork() {
		ownerShare, err = e.distributeTribute(ctx, owner, tribute, sale, depth-1, earnings)
		if err != nil {
			return decimal.Zero, err
		}
	}

	*earnings = append(*earnings, e.newEarning(sale, &owner.ID, tributeEarningType(sale.SaleType), ownerShare, &user.ID))
	return remainder, nil
}

// referralEarning emits the sponsor bonus on referral-flagged sales. The
// bonus is funded by the house and computed from the sponsor's own referral
// cut against the total commission, so it sits outside the distribution sum.
func (e *Engine) referralEarning(ctx context.Context, sale *models.Sale, commission decimal.Decimal) (*models.Earning, error) {
	if !sale.IsReferralSale || sale.ReferralUserID == nil {
		return nil, nil
	}

	resolution, err := e.resolver.Resolve(ctx, *sale.ReferralUserID, sale.VendorID)
	if err != nil {
		return nil, err
	}
	amount := commission.Mul(resolution.ReferralCut).Round(2)
	if amount.IsZero() {
		return nil, nil
	}
	earning := e.newEarning(sale, sale.ReferralUserID, enums.EarningTypeReferralSaleCommission, amount, sale.PublisherID)
	return &earning, nil
}

// checkSum verifies that the distribution set equals the sale commission to
// the cent. Referral earnings are excluded because they are house-funded
// extras, not slices of the commission.
func (e *Engine) checkSum(commission decimal.Decimal, earnings []models.Earning) error {
	total := decimal.Zero
	for i := range earnings {
		if earnings[i].EarningType.IsReferral() {
			continue
		}
		total = total.Add(earnings[i].Amount)
	}
	if !total.Equal(commission) {
		return pkgerrors.New(pkgerrors.CodeInternal, "distributed earnings do not sum to commission").
			WithDetails(map[string]any{
				"commission":  commission.String(),
				"distributed": total.String(),
			})
	}
	return nil
}

func (e *Engine) newEarning(sale *models.Sale, userID *uuid.UUID, earningType enums.EarningType, amount decimal.Decimal, fromUserID *uuid.UUID) models.Earning {
	return models.Earning{
		UserID:      userID,
		EarningType: earningType,
		SaleID:      sale.ID,
		FromUserID:  fromUserID,
		Amount:      amount,
		Status:      sale.Status,
		PaidState:   enums.PaidStatePending,
	}
}

func publisherEarningType(saleType enums.SaleType) enums.EarningType {
	if saleType == enums.SaleTypeCostPerClick {
		return enums.EarningTypePublisherSaleClickCommission
	}
	return enums.EarningTypePublisherSaleCommission
}

func tributeEarningType(saleType enums.SaleType) enums.EarningType {
	if saleType == enums.SaleTypeCostPerClick {
		return enums.EarningTypePublisherNetworkClickTribute
	}
	return enums.EarningTypePublisherNetworkTribute
}
