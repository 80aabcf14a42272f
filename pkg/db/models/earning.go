package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/pkg/enums"
)

// Earning is one beneficiary's share of a sale's commission. Earnings are
// created and deleted in bulk by the distribution engine while unlocked;
// once PaidState reaches ready, amount and existence are frozen.
type Earning struct {
	ID uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	// UserID is nil for the house share.
	UserID      *uuid.UUID        `gorm:"column:user_id;type:uuid;index"`
	EarningType enums.EarningType `gorm:"column:earning_type;type:text;not null"`
	SaleID      uuid.UUID         `gorm:"column:sale_id;type:uuid;not null;index"`
	// FromUserID is the publisher whose activity generated this split; used
	// for network-tribute and referral attribution.
	FromUserID    *uuid.UUID       `gorm:"column:from_user_id;type:uuid"`
	FromProductID *uuid.UUID       `gorm:"column:from_product_id;type:uuid"`
	Amount        decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Status        enums.SaleStatus `gorm:"column:status;type:text;not null"`
	PaidState     enums.PaidState  `gorm:"column:paid_state;type:text;not null;default:'pending'"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Locked reports whether the earning may no longer be rewritten or deleted.
func (e *Earning) Locked() bool {
	return e.PaidState.Locked()
}
