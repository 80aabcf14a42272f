package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CutException is one per-user override row inside a Cut's rules_exceptions
// column. Overrides apply field by field; a nil field falls back to the Cut's
// base value.
type CutException struct {
	UserID            uuid.UUID        `json:"user_id"`
	CutOverride       *decimal.Decimal `json:"cut_override,omitempty"`
	TributeOverride   *decimal.Decimal `json:"tribute_override,omitempty"`
	ClickCostOverride *decimal.Decimal `json:"click_cost_override,omitempty"`
}

// CutExceptions is the ordered override list; the first entry matching a user
// wins.
type CutExceptions []CutException

// MatchFor returns the first exception for the given user, or nil.
func (c CutExceptions) MatchFor(userID uuid.UUID) *CutException {
	for i := range c {
		if c[i].UserID == userID {
			return &c[i]
		}
	}
	return nil
}
