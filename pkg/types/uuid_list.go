package types

import (
	"sort"

	"github.com/google/uuid"
)

// UUIDList is a JSON-serialized list of row identifiers. Payments store the
// snapshot of contributing earning ids this way.
type UUIDList []uuid.UUID

// Contains reports whether the list holds the given id.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

// Sorted returns a copy of the list in lexical order so that two snapshots of
// the same earnings always serialize identically.
func (l UUIDList) Sorted() UUIDList {
	out := make(UUIDList, len(l))
	copy(out, l)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
