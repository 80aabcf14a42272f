package enums

import "fmt"

// SaleType distinguishes how a vendor pays commission.
type SaleType string

const (
	SaleTypeCostPerOrder SaleType = "cost_per_order"
	SaleTypeCostPerClick SaleType = "cost_per_click"
)

var validSaleTypes = []SaleType{
	SaleTypeCostPerOrder,
	SaleTypeCostPerClick,
}

// String implements fmt.Stringer.
func (s SaleType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleType.
func (s SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleType converts raw input into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}
