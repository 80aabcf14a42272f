package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/pkg/db/models"
	"github.com/apprl/dashboard-backend/pkg/enums"
)

// IngestSaleInput is one reported conversion from a network import or the
// ingest endpoint. The (Network, NetworkSaleID) pair identifies the sale
// across re-imports.
type IngestSaleInput struct {
	Network          string           `json:"network"`
	NetworkSaleID    string           `json:"network_sale_id"`
	VendorID         *uuid.UUID       `json:"vendor_id"`
	PublisherID      *uuid.UUID       `json:"publisher_id"`
	SaleType         enums.SaleType   `json:"sale_type"`
	Status           enums.SaleStatus `json:"status"`
	IsPromo          bool             `json:"is_promo"`
	IsReferralSale   bool             `json:"is_referral_sale"`
	ReferralUserID   *uuid.UUID       `json:"referral_user_id"`
	CommissionAmount decimal.Decimal  `json:"commission_amount"`
	Currency         string           `json:"currency"`
	SaleDate         *time.Time       `json:"sale_date"`
}

// ListSalesParams filters the sale listing.
type ListSalesParams struct {
	PublisherID *uuid.UUID
	Status      *enums.SaleStatus
	Network     string
	Limit       int
	Cursor      string
}

// ListSalesResult is one page of sales plus the cursor for the next page.
type ListSalesResult struct {
	Items  []models.Sale
	Cursor string
}

// SaleDetail is a sale with its materialized earnings.
type SaleDetail struct {
	Sale     *models.Sale
	Earnings []models.Earning
}
