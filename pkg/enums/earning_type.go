package enums

import "fmt"

// EarningType names the beneficiary role a distributed earning represents.
type EarningType string

const (
	EarningTypeApprlCommission              EarningType = "apprl_commission"
	EarningTypePublisherSaleCommission      EarningType = "publisher_sale_commission"
	EarningTypePublisherSaleClickCommission EarningType = "publisher_sale_click_commission"
	EarningTypePublisherNetworkTribute      EarningType = "publisher_network_tribute"
	EarningTypePublisherNetworkClickTribute EarningType = "publisher_network_click_tribute"
	EarningTypeReferralSaleCommission       EarningType = "referral_sale_commission"
	EarningTypeReferralSignupCommission     EarningType = "referral_signup_commission"
)

var validEarningTypes = []EarningType{
	EarningTypeApprlCommission,
	EarningTypePublisherSaleCommission,
	EarningTypePublisherSaleClickCommission,
	EarningTypePublisherNetworkTribute,
	EarningTypePublisherNetworkClickTribute,
	EarningTypeReferralSaleCommission,
	EarningTypeReferralSignupCommission,
}

// String implements fmt.Stringer.
func (e EarningType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningType.
func (e EarningType) IsValid() bool {
	for _, candidate := range validEarningTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// IsReferral reports whether the earning is referral-funded rather than part
// of the sale's commission split.
func (e EarningType) IsReferral() bool {
	return e == EarningTypeReferralSaleCommission || e == EarningTypeReferralSignupCommission
}

// ParseEarningType converts raw input into an EarningType.
func ParseEarningType(value string) (EarningType, error) {
	for _, candidate := range validEarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning type %q", value)
}
