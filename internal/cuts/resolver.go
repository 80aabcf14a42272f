package cuts

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/apprl/dashboard-backend/internal/publishers"
	"github.com/apprl/dashboard-backend/pkg/config"
	"github.com/apprl/dashboard-backend/pkg/db/models"
	pkgerrors "github.com/apprl/dashboard-backend/pkg/errors"
	"github.com/apprl/dashboard-backend/pkg/logger"
	"github.com/apprl/dashboard-backend/pkg/types"
)

// Resolution is the effective revenue-share configuration for one publisher
// against one vendor, with defaults already applied.
type Resolution struct {
	Publisher    *models.Publisher
	BaseCut      decimal.Decimal
	ReferralCut  decimal.Decimal
	EffectiveCut decimal.Decimal
	ClickCost    *decimal.Decimal
	Exception    *types.CutException
	// CutFound is false when no Cut row exists and the configured defaults
	// were substituted.
	CutFound bool
}

// Resolver looks up the Cut that governs a publisher's share of a sale and
// applies per-user exception overrides. It is read-only; Cut rows are
// administrator data.
type Resolver struct {
	publishers publishers.Repository
	cuts       Repository
	defaults   config.SettlementConfig
	logg       *logger.Logger
}

// NewResolver wires a cut resolver with the provided repositories.
func NewResolver(publisherRepo publishers.Repository, cutRepo Repository, defaults config.SettlementConfig, logg *logger.Logger) (*Resolver, error) {
	if publisherRepo == nil {
		return nil, fmt.Errorf("publisher repository required")
	}
	if cutRepo == nil {
		return nil, fmt.Errorf("cut repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{
		publishers: publisherRepo,
		cuts:       cutRepo,
		defaults:   defaults,
		logg:       logg,
	}, nil
}

// WithTx rebinds the resolver's repositories to the given transaction so the
// configuration read happens inside the caller's unit of work.
func (r *Resolver) WithTx(tx *gorm.DB) *Resolver {
	if tx == nil {
		return r
	}
	clone := *r
	clone.publishers = r.publishers.WithTx(tx)
	clone.cuts = r.cuts.WithTx(tx)
	return &clone
}

// Publisher loads one publisher account. A dangling reference is treated as a
// configuration error so the caller can retry after the data is repaired.
func (r *Resolver) Publisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	publisher, err := r.publishers.Find(ctx, id)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeConfig, "publisher not found").
				WithDetails(map[string]any{"publisher_id": id.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading publisher")
	}
	return publisher, nil
}

// Resolve computes the effective cut for a publisher and vendor. When no Cut
// row covers the pair the configured defaults are substituted and the miss is
// logged; callers decide whether a miss is acceptable for their operation.
func (r *Resolver) Resolve(ctx context.Context, publisherID uuid.UUID, vendorID *uuid.UUID) (*Resolution, error) {
	publisher, err := r.Publisher(ctx, publisherID)
	if err != nil {
		return nil, err
	}
	return r.ResolveForPublisher(ctx, publisher, vendorID)
}

// ResolveForPublisher is Resolve for an already-loaded publisher.
func (r *Resolver) ResolveForPublisher(ctx context.Context, publisher *models.Publisher, vendorID *uuid.UUID) (*Resolution, error) {
	resolution := &Resolution{
		Publisher:    publisher,
		BaseCut:      r.defaults.DefaultCut,
		ReferralCut:  r.defaults.DefaultReferralCut,
		EffectiveCut: r.defaults.DefaultCut,
	}

	cut, err := r.lookupCut(ctx, publisher, vendorID)
	if err != nil {
		return nil, err
	}
	if cut == nil {
		ctx = r.logg.WithPublisherID(ctx, publisher.ID.String())
		r.logg.Warn(ctx, "no cut configured, using defaults")
		return resolution, nil
	}

	resolution.CutFound = true
	resolution.BaseCut = cut.BaseCut
	resolution.ReferralCut = cut.ReferralCut
	resolution.EffectiveCut = cut.BaseCut
	resolution.ClickCost = cut.ClickCost

	if exception := cut.RulesExceptions.MatchFor(publisher.ID); exception != nil {
		resolution.Exception = exception
		if exception.CutOverride != nil {
			resolution.EffectiveCut = *exception.CutOverride
		}
		if exception.ClickCostOverride != nil {
			resolution.ClickCost = exception.ClickCostOverride
		}
	}

	if err := validateFraction(resolution.EffectiveCut, "cut"); err != nil {
		return nil, err
	}
	return resolution, nil
}

// TributeFraction returns the share of a publisher's earnings owed to their
// owner network. The owner's configured fraction applies unless the user's
// Cut carries a tribute override for them. A fraction outside [0,1] aborts
// distribution for the sale.
func (r *Resolver) TributeFraction(ctx context.Context, user, owner *models.Publisher, vendorID *uuid.UUID) (decimal.Decimal, error) {
	fraction := owner.OwnerNetworkCut

	cut, err := r.lookupCut(ctx, user, vendorID)
	if err != nil {
		return decimal.Zero, err
	}
	if cut != nil {
		if exception := cut.RulesExceptions.MatchFor(user.ID); exception != nil && exception.TributeOverride != nil {
			fraction = *exception.TributeOverride
		}
	}

	if err := validateFraction(fraction, "tribute fraction"); err != nil {
		return decimal.Zero, pkgerrors.As(err).WithDetails(map[string]any{
			"publisher_id": user.ID.String(),
			"owner_id":     owner.ID.String(),
			"fraction":     fraction.String(),
		})
	}
	return fraction, nil
}

func (r *Resolver) lookupCut(ctx context.Context, publisher *models.Publisher, vendorID *uuid.UUID) (*models.Cut, error) {
	if publisher.PartnerGroupID == nil || vendorID == nil {
		return nil, nil
	}
	cut, err := r.cuts.FindForGroupVendor(ctx, *publisher.PartnerGroupID, *vendorID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cut")
	}
	return cut, nil
}

var fractionOne = decimal.NewFromInt(1)

func validateFraction(fraction decimal.Decimal, label string) error {
	if fraction.IsNegative() || fraction.GreaterThan(fractionOne) {
		return pkgerrors.New(pkgerrors.CodeConfig, fmt.Sprintf("%s %s outside [0,1]", label, fraction))
	}
	return nil
}
