package liquidation

// BorrowerState is the per-account replica of one borrower's position
// across every watched market: supplied cToken balances, outstanding
// borrow principal, and the borrow index each principal was last struck
// at. It carries no collaborator references and no locking of its own —
// the owning BorrowerRegistry serializes all access.
type BorrowerState struct {
	Address Address

	supplied               map[MarketId]F
	borrowPrincipal        map[MarketId]F
	borrowIndexAtPrincipal map[MarketId]F

	LastUpdatedBlock uint64
}

func newBorrowerState(addr Address) *BorrowerState {
	return &BorrowerState{
		Address:                addr,
		supplied:               make(map[MarketId]F),
		borrowPrincipal:        make(map[MarketId]F),
		borrowIndexAtPrincipal: make(map[MarketId]F),
	}
}

// Supplied returns the cToken balance held in market m (zero if the
// borrower has never supplied there).
func (b *BorrowerState) Supplied(m MarketId) F {
	return b.supplied[m]
}

// BorrowPrincipal returns the raw principal recorded at
// BorrowIndexAtPrincipal(m); it is not the current owed balance, which
// must be scaled by the live borrow index (see OwedUnderlying).
func (b *BorrowerState) BorrowPrincipal(m MarketId) F {
	return b.borrowPrincipal[m]
}

// BorrowIndexAtPrincipal returns the borrow index in force the last time
// m's principal was struck (by a Borrow or RepayBorrow event).
func (b *BorrowerState) BorrowIndexAtPrincipal(m MarketId) F {
	return b.borrowIndexAtPrincipal[m]
}

// OwedUnderlying scales the recorded principal by the ratio of the
// current borrow index to the index it was struck at. A zero principal
// always owes zero, independent of the index (an account that has never
// borrowed in m has no uninitialized-index dependency).
func (b *BorrowerState) OwedUnderlying(m MarketId, currentIndex F) (F, error) {
	principal := b.borrowPrincipal[m]
	if principal.IsZero() {
		return F{}, nil
	}
	indexAtPrincipal := b.borrowIndexAtPrincipal[m]
	if indexAtPrincipal.IsZero() {
		return F{}, ErrUninitializedIndex
	}
	ratio, err := currentIndex.Quo(indexAtPrincipal)
	if err != nil {
		return F{}, err
	}
	return principal.Mul(ratio), nil
}

func (b *BorrowerState) touch(block uint64) {
	if block > b.LastUpdatedBlock {
		b.LastUpdatedBlock = block
	}
}

// applyMint credits a Mint event's cTokens to the supplied balance.
func (b *BorrowerState) applyMint(m MarketId, mintTokens F, block uint64) {
	b.supplied[m] = b.supplied[m].Add(mintTokens)
	b.touch(block)
}

// applyRedeem debits a Redeem event's cTokens from the supplied balance,
// saturating to zero (and reporting drift) if the event claims more than
// the replica believes is held — the StateDrift case spec.md §7 names.
func (b *BorrowerState) applyRedeem(m MarketId, redeemTokens F, block uint64) (drift bool) {
	next, saturated := b.supplied[m].SatSub(redeemTokens)
	b.supplied[m] = next
	b.touch(block)
	return saturated
}

// applyBorrowPrincipal overwrites the recorded principal and index for m,
// used by both Borrow and RepayBorrow events since Compound's events
// report the account's new absolute principal rather than a delta.
func (b *BorrowerState) applyBorrowPrincipal(m MarketId, accountBorrowsNew, borrowIndexNow F, block uint64) {
	b.borrowPrincipal[m] = accountBorrowsNew
	b.borrowIndexAtPrincipal[m] = borrowIndexNow
	b.touch(block)
}

// applySeize debits seized collateral from the supplied balance in the
// seize market, saturating to zero like applyRedeem.
func (b *BorrowerState) applySeize(m MarketId, seizeTokens F, block uint64) (drift bool) {
	next, saturated := b.supplied[m].SatSub(seizeTokens)
	b.supplied[m] = next
	b.touch(block)
	return saturated
}

// applyTransferOut debits a raw cToken Transfer's amount from the
// supplied balance, saturating to zero.
func (b *BorrowerState) applyTransferOut(m MarketId, amount F, block uint64) (drift bool) {
	next, saturated := b.supplied[m].SatSub(amount)
	b.supplied[m] = next
	b.touch(block)
	return saturated
}

// applyTransferIn credits a raw cToken Transfer's amount to the supplied
// balance.
func (b *BorrowerState) applyTransferIn(m MarketId, amount F, block uint64) {
	b.supplied[m] = b.supplied[m].Add(amount)
	b.touch(block)
}

// clone deep-copies the state (F values are immutable, so copying the map
// entries is sufficient), matching the teacher's Clone() convention for
// big.Int-bearing structs. Used to take point-in-time snapshots for scans
// without holding the registry lock across the evaluation loop.
func (b *BorrowerState) clone() *BorrowerState {
	out := newBorrowerState(b.Address)
	for k, v := range b.supplied {
		out.supplied[k] = v
	}
	for k, v := range b.borrowPrincipal {
		out.borrowPrincipal[k] = v
	}
	for k, v := range b.borrowIndexAtPrincipal {
		out.borrowIndexAtPrincipal[k] = v
	}
	out.LastUpdatedBlock = b.LastUpdatedBlock
	return out
}
