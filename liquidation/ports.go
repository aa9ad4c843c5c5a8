package liquidation

import "context"

// ChainReader is the on-demand storage-read collaborator used for
// hydration, re-verification, and per-scan exchange-rate snapshots. It is
// an external interface only; implementations (RPC, websocket, IPC) live
// outside this module.
type ChainReader interface {
	// BlockNumber returns the chain head the registry should hydrate or
	// snapshot against.
	BlockNumber(ctx context.Context) (uint64, error)

	// BorrowIndex returns a market's cumulative borrow index as of atBlock.
	BorrowIndex(ctx context.Context, market MarketId, atBlock uint64) (F, error)

	// ExchangeRateStored returns a market's cToken-to-underlying exchange
	// rate as of atBlock.
	ExchangeRateStored(ctx context.Context, market MarketId, atBlock uint64) (F, error)

	// AccountSnapshot returns an account's raw on-chain position in a
	// single market as of atBlock, used to hydrate or re-verify a
	// BorrowerState.
	AccountSnapshot(ctx context.Context, market MarketId, addr Address, atBlock uint64) (AccountSnapshot, error)
}

// AccountSnapshot is the raw per-market position ChainReader reports for
// one account, mirroring a cToken's getAccountSnapshot.
type AccountSnapshot struct {
	SuppliedCTokens F
	BorrowBalance   F
	BorrowIndex     F
}

// RawEvent is the decoded log payload an EventSource implementation
// delivers to EventApplier.Apply. Exactly one of the embedded payload
// fields is populated, selected by Kind.
type RawEvent struct {
	Market      MarketId
	BlockNumber uint64
	LogIndex    uint64
	Status      EventStatus
	Kind        EventKind

	AccrueInterest  *AccrueInterestPayload
	Mint            *MintPayload
	Redeem          *RedeemPayload
	Borrow          *BorrowPayload
	RepayBorrow     *RepayBorrowPayload
	LiquidateBorrow *LiquidateBorrowPayload
	Transfer        *TransferPayload
}

// EventSource streams decoded chain events to a caller-owned loop; this
// module never drives the subscription itself, it only consumes the
// channel via whatever code wires EventSource into EventApplier.Apply.
type EventSource interface {
	Subscribe(ctx context.Context, fromBlock uint64) (<-chan RawEvent, error)
}

// MarketRegistry supplies comptroller-level parameters that are not part
// of the event-driven replica: collateral factors, the protocol-wide
// close factor and liquidation incentive, and per-account collateral
// enrollment.
type MarketRegistry interface {
	CollateralFactor(market MarketId) (F, error)
	CloseFactor() (F, error)
	LiquidationIncentive() (F, error)
	IsCollateral(addr Address, market MarketId) (bool, error)
}

// PriceEdge bounds a price the on-chain liquidation call must attest,
// expressed as the envelope an executor will accept at submission time.
type PriceEdge struct {
	Symbol string
	Min    F
	Max    F
}

// PostableAttestations is an opaque bundle of signed oracle price
// messages acceptable by the on-chain liquidation entry point.
type PostableAttestations struct {
	Payload []byte
}

// PriceLedger supplies current prices and, when available, a signed
// attestation bundle suitable for submission alongside a liquidation
// transaction.
type PriceLedger interface {
	Price(market MarketId) (F, error)
	GetPostableFormat(symbols []string, edges []PriceEdge) (*PostableAttestations, bool)
}

// LiquidationCandidate is a single scan result: an underwater borrower
// together with the most profitable (repay, seize) market pair and the
// price attestations an executor would need to submit the liquidation.
type LiquidationCandidate struct {
	Address            Address
	RepayMarket        MarketId
	SeizeMarket        MarketId
	Attestations       *PostableAttestations
	ExpectedRevenueEth F
}
