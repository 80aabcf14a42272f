package enums

import "fmt"

// SaleStatus tracks the lifecycle of a reported sale. The order of the
// statuses matters: lifecycle decisions compare ranks, not raw strings.
type SaleStatus string

const (
	SaleStatusIncomplete      SaleStatus = "incomplete"
	SaleStatusDeclined        SaleStatus = "declined"
	SaleStatusPending         SaleStatus = "pending"
	SaleStatusConfirmed       SaleStatus = "confirmed"
	SaleStatusReadyForPayment SaleStatus = "ready_for_payment"
	SaleStatusPaid            SaleStatus = "paid"
)

// orderedSaleStatuses doubles as the validity set and the rank table.
var orderedSaleStatuses = []SaleStatus{
	SaleStatusIncomplete,
	SaleStatusDeclined,
	SaleStatusPending,
	SaleStatusConfirmed,
	SaleStatusReadyForPayment,
	SaleStatusPaid,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range orderedSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Rank returns the ordinal position of the status. Unknown statuses rank
// below every valid one.
func (s SaleStatus) Rank() int {
	for i, candidate := range orderedSaleStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// AtLeast reports whether the status has reached the given stage.
func (s SaleStatus) AtLeast(other SaleStatus) bool {
	return s.Rank() >= other.Rank()
}

// SaleStatusesAtLeast returns every valid status whose rank is >= the given
// stage, in rank order. Repositories use it for IN clauses.
func SaleStatusesAtLeast(stage SaleStatus) []SaleStatus {
	var out []SaleStatus
	for _, candidate := range orderedSaleStatuses {
		if candidate.Rank() >= stage.Rank() {
			out = append(out, candidate)
		}
	}
	return out
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range orderedSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
