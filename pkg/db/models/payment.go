package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/apprl/dashboard-backend/pkg/types"
)

// Payment is a batched, payable aggregation of one publisher's earnings.
// At most one non-cancelled unpaid payment exists per publisher.
type Payment struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency   string          `gorm:"column:currency;not null"`
	EarningIDs types.UUIDList  `gorm:"column:earning_ids;type:jsonb;serializer:json"`
	Paid       bool            `gorm:"column:paid;not null;default:false"`
	Cancelled  bool            `gorm:"column:cancelled;not null;default:false"`
	PaidAt     *time.Time      `gorm:"column:paid_at"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
