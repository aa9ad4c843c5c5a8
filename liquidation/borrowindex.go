package liquidation

import "fmt"

// BorrowIndexTable tracks the latest observed cumulative borrow index per
// market. It performs no synchronization of its own — like the teacher's
// Market/PoolIndexes structs, callers (BorrowerRegistry, EventApplier) are
// expected to hold the registry's lock before touching it. It also
// enforces no monotonicity rule itself; rejecting a regressed index is the
// EventApplier's responsibility per its AccrueInterest handling.
type BorrowIndexTable struct {
	index map[MarketId]F
}

// NewBorrowIndexTable constructs an empty table; every market starts
// uninitialized until an AccrueInterest event or hydration call sets it.
func NewBorrowIndexTable() *BorrowIndexTable {
	return &BorrowIndexTable{index: make(map[MarketId]F)}
}

// Get returns the current index for m, or ErrUninitializedIndex if no
// value has ever been set.
func (t *BorrowIndexTable) Get(m MarketId) (F, error) {
	v, ok := t.index[m]
	if !ok {
		return F{}, fmt.Errorf("%w: %s", ErrUninitializedIndex, m)
	}
	return v, nil
}

// Set unconditionally overwrites the stored index for m.
func (t *BorrowIndexTable) Set(m MarketId, idx F) {
	t.index[m] = idx
}

// Snapshot returns a shallow copy of the table suitable for use outside
// the caller's lock (F values are immutable once constructed).
func (t *BorrowIndexTable) Snapshot() map[MarketId]F {
	out := make(map[MarketId]F, len(t.index))
	for k, v := range t.index {
		out[k] = v
	}
	return out
}
