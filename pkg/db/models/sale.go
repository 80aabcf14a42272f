package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/pkg/enums"
)

// Sale is one reported affiliate conversion event. Sales are never deleted;
// re-imports and manual transitions mutate them through the lifecycle
// service, which keeps the derived earnings consistent.
type Sale struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Network       string     `gorm:"column:network;not null;uniqueIndex:idx_sales_network_sale"`
	NetworkSaleID string     `gorm:"column:network_sale_id;not null;uniqueIndex:idx_sales_network_sale"`
	VendorID      *uuid.UUID `gorm:"column:vendor_id;type:uuid;index"`
	// PublisherID is nil for house sales with no publisher attribution.
	PublisherID    *uuid.UUID       `gorm:"column:publisher_id;type:uuid;index"`
	SaleType       enums.SaleType   `gorm:"column:sale_type;type:text;not null;default:'cost_per_order'"`
	Status         enums.SaleStatus `gorm:"column:status;type:text;not null;default:'incomplete'"`
	IsPromo        bool             `gorm:"column:is_promo;not null;default:false"`
	IsReferralSale bool             `gorm:"column:is_referral_sale;not null;default:false"`
	ReferralUserID *uuid.UUID       `gorm:"column:referral_user_id;type:uuid"`
	// CutApplied records the publisher cut fraction used at distribution time.
	CutApplied               *decimal.Decimal `gorm:"column:cut_applied;type:numeric(6,4)"`
	CommissionAmount         decimal.Decimal  `gorm:"column:commission_amount;type:numeric(12,2);not null;default:0"`
	OriginalCommissionAmount decimal.Decimal  `gorm:"column:original_commission_amount;type:numeric(12,2);not null;default:0"`
	Currency                 string           `gorm:"column:currency;not null;default:'EUR'"`
	RejectionNote            *string          `gorm:"column:rejection_note"`
	SaleDate                 *time.Time       `gorm:"column:sale_date"`
	CreatedAt                time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsHouseSale reports whether the sale has no publisher attribution.
func (s *Sale) IsHouseSale() bool {
	return s.PublisherID == nil
}
