package enums

import "fmt"

// PaidState tracks how far an earning has moved through settlement. Once an
// earning reaches PaidStateReady it is locked against regeneration.
type PaidState string

const (
	PaidStatePending  PaidState = "pending"
	PaidStateReady    PaidState = "ready"
	PaidStateComplete PaidState = "complete"
)

var orderedPaidStates = []PaidState{
	PaidStatePending,
	PaidStateReady,
	PaidStateComplete,
}

// String implements fmt.Stringer.
func (p PaidState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaidState.
func (p PaidState) IsValid() bool {
	for _, candidate := range orderedPaidStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// Rank returns the ordinal position of the state.
func (p PaidState) Rank() int {
	for i, candidate := range orderedPaidStates {
		if candidate == p {
			return i
		}
	}
	return -1
}

// AtLeast reports whether the state has reached the given stage.
func (p PaidState) AtLeast(other PaidState) bool {
	return p.Rank() >= other.Rank()
}

// Locked reports whether the earning may no longer be rewritten or deleted.
func (p PaidState) Locked() bool {
	return p.AtLeast(PaidStateReady)
}

// ParsePaidState converts raw input into a PaidState.
func ParsePaidState(value string) (PaidState, error) {
	for _, candidate := range orderedPaidStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid paid state %q", value)
}
