package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Publisher is an affiliate account that drives sales. Network owners are
// publishers themselves: OwnerNetworkID forms a graph that is expected to be
// a forest but is not guaranteed acyclic, so distribution never trusts it.
type Publisher struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string          `gorm:"column:name;not null"`
	Email           *string         `gorm:"column:email"`
	PartnerGroupID  *uuid.UUID      `gorm:"column:partner_group_id;type:uuid;index"`
	OwnerNetworkID  *uuid.UUID      `gorm:"column:owner_network_id;type:uuid;index"`
	OwnerNetworkCut decimal.Decimal `gorm:"column:owner_network_cut;type:numeric(6,4);not null;default:0"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// HasOwnerNetwork reports whether the publisher pays tribute upward. A
// self-reference does not count as an owner.
func (p *Publisher) HasOwnerNetwork() bool {
	return p.OwnerNetworkID != nil && *p.OwnerNetworkID != p.ID
}
