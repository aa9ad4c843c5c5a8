package liquidation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newHealthFixture(t *testing.T) (*MarketSet, *mockMarketRegistry, *mockPriceLedger) {
	t.Helper()
	markets := NewMarketSet("cDAI", "cETH")
	reg := newMockMarketRegistry()
	cf, _ := FromDecimalString("0.75")
	reg.collateralFactor["cDAI"] = cf
	reg.collateralFactor["cETH"] = cf
	reg.closeFactor, _ = FromDecimalString("0.5")
	reg.liquidationIncentive, _ = FromDecimalString("1.08")

	prices := newMockPriceLedger()
	one, _ := FromDecimalString("1")
	prices.prices["cDAI"] = one
	eth, _ := FromDecimalString("2000")
	prices.prices["cETH"] = eth

	return markets, reg, prices
}

func TestHealthEvaluatorHealthyAccountIsNotACandidate(t *testing.T) {
	require := require.New(t)
	markets, reg, prices := newHealthFixture(t)
	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(1))
	supplied, _ := FromDecimalString("1") // 1 cETH
	b.applyMint("cETH", supplied, 1)
	reg.setCollateral(b.Address, "cETH", true)

	borrowed, _ := FromDecimalString("100") // $100 of cDAI debt, well under collateral
	b.applyBorrowPrincipal("cDAI", borrowed, FromInt64(1), 1)

	exRate := FromInt64(1)
	cand, err := eval.Evaluate(b,
		map[MarketId]F{"cDAI": FromInt64(1), "cETH": FromInt64(1)},
		map[MarketId]F{"cDAI": exRate, "cETH": exRate},
		reg, prices)
	require.NoError(err)
	require.Nil(cand, "a well-collateralized account must not be surfaced as a candidate")
}

func TestHealthEvaluatorUnderwaterAccountProducesCandidate(t *testing.T) {
	require := require.New(t)
	markets, reg, prices := newHealthFixture(t)
	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(2))
	supplied, _ := FromDecimalString("0.1") // 0.1 cETH ~ $200 collateral value, *0.75 CF = $150
	b.applyMint("cETH", supplied, 1)
	reg.setCollateral(b.Address, "cETH", true)

	borrowed, _ := FromDecimalString("180") // $180 debt > $150 collateral -> underwater
	b.applyBorrowPrincipal("cDAI", borrowed, FromInt64(1), 1)

	exRate := FromInt64(1)
	cand, err := eval.Evaluate(b,
		map[MarketId]F{"cDAI": FromInt64(1), "cETH": FromInt64(1)},
		map[MarketId]F{"cDAI": exRate, "cETH": exRate},
		reg, prices)
	require.NoError(err)
	require.NotNil(cand)
	require.Equal(MarketId("cDAI"), cand.RepayMarket)
	require.Equal(MarketId("cETH"), cand.SeizeMarket)
	require.True(cand.ExpectedRevenueEth.Sign() > 0, "candidate must carry positive expected revenue")
	require.NotNil(cand.Attestations)
}

func TestHealthEvaluatorDropsCandidateOnStaleAttestation(t *testing.T) {
	require := require.New(t)
	markets, reg, prices := newHealthFixture(t)
	prices.staleMarkets["cDAI"] = true
	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(3))
	supplied, _ := FromDecimalString("0.1")
	b.applyMint("cETH", supplied, 1)
	reg.setCollateral(b.Address, "cETH", true)
	borrowed, _ := FromDecimalString("180")
	b.applyBorrowPrincipal("cDAI", borrowed, FromInt64(1), 1)

	exRate := FromInt64(1)
	cand, err := eval.Evaluate(b,
		map[MarketId]F{"cDAI": FromInt64(1), "cETH": FromInt64(1)},
		map[MarketId]F{"cDAI": exRate, "cETH": exRate},
		reg, prices)
	require.NoError(err)
	require.Nil(cand, "a stale attestation must drop the candidate rather than surface an unexecutable one")
}

func TestHealthEvaluatorSkipsNonCollateralMarkets(t *testing.T) {
	require := require.New(t)
	markets, reg, prices := newHealthFixture(t)
	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(4))
	supplied, _ := FromDecimalString("0.1")
	b.applyMint("cETH", supplied, 1)
	// Deliberately not enrolled as collateral.
	borrowed, _ := FromDecimalString("180")
	b.applyBorrowPrincipal("cDAI", borrowed, FromInt64(1), 1)

	exRate := FromInt64(1)
	cand, err := eval.Evaluate(b,
		map[MarketId]F{"cDAI": FromInt64(1), "cETH": FromInt64(1)},
		map[MarketId]F{"cDAI": exRate, "cETH": exRate},
		reg, prices)
	require.NoError(err)
	require.Nil(cand, "collateral not enrolled for the market must never be seized")
}

// TestHealthEvaluatorSeizeMarketChosenBySupplyEthNotRawSupplied covers
// spec.md §8's S5 scenario: two collateral markets where the raw
// cToken-balance ranking disagrees with the Eth-value ranking. cDAI has
// the larger raw supplied balance but, at its exchange rate and price,
// the smaller dollar value; seizeMarket must follow supplyEth.
func TestHealthEvaluatorSeizeMarketChosenBySupplyEthNotRawSupplied(t *testing.T) {
	require := require.New(t)
	markets := NewMarketSet("cDAI", "cETH", "cUSDC")
	reg := newMockMarketRegistry()
	cf, _ := FromDecimalString("0.75")
	reg.collateralFactor["cDAI"] = cf
	reg.collateralFactor["cETH"] = cf
	reg.collateralFactor["cUSDC"] = cf
	reg.closeFactor, _ = FromDecimalString("0.5")
	reg.liquidationIncentive, _ = FromDecimalString("1.08")

	prices := newMockPriceLedger()
	prices.prices["cDAI"] = FromInt64(1)
	eth, _ := FromDecimalString("2000")
	prices.prices["cETH"] = eth
	prices.prices["cUSDC"] = FromInt64(1)

	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(6))
	// cDAI: 1000 raw cTokens at exchangeRate 0.001 -> 1 DAI -> $1 value.
	cDAISupplied, _ := FromDecimalString("1000")
	b.applyMint("cDAI", cDAISupplied, 1)
	reg.setCollateral(b.Address, "cDAI", true)

	// cETH: 1 raw cToken at exchangeRate 1 -> 1 ETH -> $2000 value, the
	// smaller raw balance but the larger dollar value.
	cETHSupplied, _ := FromDecimalString("1")
	b.applyMint("cETH", cETHSupplied, 1)
	reg.setCollateral(b.Address, "cETH", true)

	borrowed, _ := FromDecimalString("2000") // underwater against ($1 + $2000) * 0.75 = $1500.75 collateral
	b.applyBorrowPrincipal("cUSDC", borrowed, FromInt64(1), 1)

	exRates := map[MarketId]F{
		"cDAI":  mustF(t, "0.001"),
		"cETH":  FromInt64(1),
		"cUSDC": FromInt64(1),
	}
	indices := map[MarketId]F{"cDAI": FromInt64(1), "cETH": FromInt64(1), "cUSDC": FromInt64(1)}

	cand, err := eval.Evaluate(b, indices, exRates, reg, prices)
	require.NoError(err)
	require.NotNil(cand)
	require.Equal(MarketId("cETH"), cand.SeizeMarket,
		"seizeMarket must be chosen by supplyEth ($2000 for cETH vs $1 for cDAI), not raw supplied cToken balance (1000 cDAI vs 1 cETH)")
}

func TestHealthEvaluatorUninitializedIndexErrors(t *testing.T) {
	require := require.New(t)
	markets, reg, prices := newHealthFixture(t)
	eval := NewHealthEvaluator(markets)

	b := newBorrowerState(addr(5))
	borrowed, _ := FromDecimalString("50")
	b.applyBorrowPrincipal("cDAI", borrowed, FromInt64(1), 1)

	exRate := FromInt64(1)
	_, err := eval.Evaluate(b,
		map[MarketId]F{"cETH": FromInt64(1)}, // cDAI index missing
		map[MarketId]F{"cDAI": exRate, "cETH": exRate},
		reg, prices)
	require.ErrorIs(err, ErrUninitializedIndex)
}
