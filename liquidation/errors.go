package liquidation

import "errors"

// Sentinel errors, wrapped with call-site context via %w at every return
// site, following the teacher's native/lending/engine.go convention of
// package-level errors.New values rather than ad-hoc fmt.Errorf strings.
var (
	// ErrUninitializedIndex is returned by BorrowIndexTable.Get when the
	// market's index has never been set (by Init, RefetchIndex, or an
	// AccrueInterest event).
	ErrUninitializedIndex = errors.New("liquidation: borrow index not initialized for market")

	// ErrUnknownMarket is returned when an event, lookup, or configuration
	// entry names a MarketId outside the configured MarketSet.
	ErrUnknownMarket = errors.New("liquidation: market not in watched set")

	// ErrUnknownBorrower is returned by registry operations that require
	// an address to already be registered.
	ErrUnknownBorrower = errors.New("liquidation: address not registered")

	// ErrEventGap is returned by EventApplier.Apply when a market's event
	// stream skips a logIndex, signalling the caller must refetch rather
	// than continue applying events that may be out of sequence.
	ErrEventGap = errors.New("liquidation: missing log index detected, refetch required")

	// ErrEventOutOfOrder is returned when an event arrives at or before a
	// cursor already advanced past it (duplicate delivery or misordering
	// upstream of the applier).
	ErrEventOutOfOrder = errors.New("liquidation: event delivered out of order")

	// ErrStaleAttestation signals that the PriceLedger has no postable
	// attestation for the prices a liquidation call would need to report;
	// callers drop the candidate rather than submit an unexecutable tx.
	ErrStaleAttestation = errors.New("liquidation: no postable price attestation available")

	// ErrChainRead wraps failures surfaced by the ChainReader collaborator.
	ErrChainRead = errors.New("liquidation: chain read failed")
)
