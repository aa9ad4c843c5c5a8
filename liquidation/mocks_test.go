package liquidation

import (
	"context"
	"fmt"
)

// mockChainReader is an in-memory ChainReader test double, analogous to
// the teacher's mockEngineState pattern in native/lending/*_test.go: a
// plain map-backed stand-in rather than a generated mock.
type mockChainReader struct {
	head          uint64
	borrowIndex   map[MarketId]F
	exchangeRate  map[MarketId]F
	snapshots     map[Address]map[MarketId]AccountSnapshot
	readErr       error
	borrowIdxErrs map[MarketId]error
}

func newMockChainReader() *mockChainReader {
	return &mockChainReader{
		borrowIndex:  make(map[MarketId]F),
		exchangeRate: make(map[MarketId]F),
		snapshots:    make(map[Address]map[MarketId]AccountSnapshot),
	}
}

func (m *mockChainReader) BlockNumber(ctx context.Context) (uint64, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.head, nil
}

func (m *mockChainReader) BorrowIndex(ctx context.Context, market MarketId, atBlock uint64) (F, error) {
	if err, ok := m.borrowIdxErrs[market]; ok {
		return F{}, err
	}
	v, ok := m.borrowIndex[market]
	if !ok {
		return F{}, fmt.Errorf("mock: no borrow index set for %s", market)
	}
	return v, nil
}

func (m *mockChainReader) ExchangeRateStored(ctx context.Context, market MarketId, atBlock uint64) (F, error) {
	v, ok := m.exchangeRate[market]
	if !ok {
		return F{}, fmt.Errorf("mock: no exchange rate set for %s", market)
	}
	return v, nil
}

func (m *mockChainReader) AccountSnapshot(ctx context.Context, market MarketId, addr Address, atBlock uint64) (AccountSnapshot, error) {
	byMarket, ok := m.snapshots[addr]
	if !ok {
		return AccountSnapshot{}, nil
	}
	return byMarket[market], nil
}

func (m *mockChainReader) setSnapshot(addr Address, market MarketId, snap AccountSnapshot) {
	byMarket, ok := m.snapshots[addr]
	if !ok {
		byMarket = make(map[MarketId]AccountSnapshot)
		m.snapshots[addr] = byMarket
	}
	byMarket[market] = snap
}

// mockMarketRegistry is a fixed-parameter MarketRegistry test double.
type mockMarketRegistry struct {
	collateralFactor     map[MarketId]F
	closeFactor          F
	liquidationIncentive F
	collateralMembership map[Address]map[MarketId]bool
}

func newMockMarketRegistry() *mockMarketRegistry {
	return &mockMarketRegistry{
		collateralFactor:     make(map[MarketId]F),
		collateralMembership: make(map[Address]map[MarketId]bool),
	}
}

func (m *mockMarketRegistry) CollateralFactor(market MarketId) (F, error) {
	v, ok := m.collateralFactor[market]
	if !ok {
		return F{}, fmt.Errorf("mock: no collateral factor for %s", market)
	}
	return v, nil
}

func (m *mockMarketRegistry) CloseFactor() (F, error) { return m.closeFactor, nil }

func (m *mockMarketRegistry) LiquidationIncentive() (F, error) { return m.liquidationIncentive, nil }

func (m *mockMarketRegistry) IsCollateral(addr Address, market MarketId) (bool, error) {
	byMarket, ok := m.collateralMembership[addr]
	if !ok {
		return false, nil
	}
	return byMarket[market], nil
}

func (m *mockMarketRegistry) setCollateral(addr Address, market MarketId, enrolled bool) {
	byMarket, ok := m.collateralMembership[addr]
	if !ok {
		byMarket = make(map[MarketId]bool)
		m.collateralMembership[addr] = byMarket
	}
	byMarket[market] = enrolled
}

// mockPriceLedger is a fixed-price PriceLedger test double that always
// returns a postable attestation unless staleMarkets marks one as stale.
type mockPriceLedger struct {
	prices       map[MarketId]F
	staleMarkets map[MarketId]bool
}

func newMockPriceLedger() *mockPriceLedger {
	return &mockPriceLedger{prices: make(map[MarketId]F), staleMarkets: make(map[MarketId]bool)}
}

func (m *mockPriceLedger) Price(market MarketId) (F, error) {
	v, ok := m.prices[market]
	if !ok {
		return F{}, fmt.Errorf("mock: no price for %s", market)
	}
	return v, nil
}

func (m *mockPriceLedger) GetPostableFormat(symbols []string, edges []PriceEdge) (*PostableAttestations, bool) {
	for _, s := range symbols {
		if m.staleMarkets[MarketId(s)] {
			return nil, false
		}
	}
	return &PostableAttestations{Payload: []byte("attestation")}, true
}

// countingDriftRecorder records how many times each method fired, for
// assertions on drift/reorg observability without pulling in Prometheus.
type countingDriftRecorder struct {
	drift map[string]int
	reorg map[string]int
}

func newCountingDriftRecorder() *countingDriftRecorder {
	return &countingDriftRecorder{drift: make(map[string]int), reorg: make(map[string]int)}
}

func (c *countingDriftRecorder) RecordDrift(market string)         { c.drift[market]++ }
func (c *countingDriftRecorder) RecordReorgRecovery(market string) { c.reorg[market]++ }

func addr(b byte) Address {
	var raw [20]byte
	raw[19] = b
	a, err := AddressFromBytes(raw[:])
	if err != nil {
		panic(err)
	}
	return a
}
