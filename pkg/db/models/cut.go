package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/pkg/types"
)

// Cut is the revenue-share configuration for a (commission group, vendor)
// pair. It is maintained by administrators and read-only to the engine.
type Cut struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID           uuid.UUID           `gorm:"column:group_id;type:uuid;not null;uniqueIndex:idx_cuts_group_vendor"`
	VendorID          uuid.UUID           `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:idx_cuts_group_vendor"`
	BaseCut           decimal.Decimal     `gorm:"column:base_cut;type:numeric(6,4);not null"`
	ReferralCut       decimal.Decimal     `gorm:"column:referral_cut;type:numeric(6,4);not null;default:0"`
	ClickCost         *decimal.Decimal    `gorm:"column:click_cost;type:numeric(12,2)"`
	ClickCostCurrency *string             `gorm:"column:click_cost_currency"`
	RulesExceptions   types.CutExceptions `gorm:"column:rules_exceptions;type:jsonb;serializer:json"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
