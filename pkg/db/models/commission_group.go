package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionGroup is a set of publishers sharing Cut configuration.
type CommissionGroup struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string           `gorm:"column:name;not null;unique"`
	OwnerID         *uuid.UUID       `gorm:"column:owner_id;type:uuid"`
	OwnerCutDefault *decimal.Decimal `gorm:"column:owner_cut_default;type:numeric(6,4)"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
