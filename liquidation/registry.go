package liquidation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"liquidatorcore/config"
)

// DriftRecorder receives notifications for the observability concerns an
// EventApplier surfaces as it runs: saturating state drift and reorg
// recoveries. The metrics package implements this against Prometheus
// counters; tests can supply a no-op or counting stub.
type DriftRecorder interface {
	RecordDrift(market string)
	RecordReorgRecovery(market string)
}

type noopDriftRecorder struct{}

func (noopDriftRecorder) RecordDrift(string)         {}
func (noopDriftRecorder) RecordReorgRecovery(string) {}

// BorrowerRegistry owns the live replica: the watched borrower map and the
// shared BorrowIndexTable, plus the collaborators needed to hydrate and
// re-verify it. A single sync.RWMutex guards both maps, per spec.md §5(b):
// EventApplier.Apply takes the write lock for the duration of a single
// event's mutation, Scan takes the read lock only for its snapshot phase.
type BorrowerRegistry struct {
	mu sync.RWMutex

	markets    *MarketSet
	borrowers  map[Address]*BorrowerState
	indexTable *BorrowIndexTable

	chain     ChainReader
	evaluator *HealthEvaluator
	logger    *slog.Logger
	metrics   DriftRecorder

	applier *EventApplier

	toleranceExponent  int
	hydrationBatchSize int
}

// NewBorrowerRegistry builds a registry over the given watched markets,
// governed by cfg (watched-market list is the caller's MarketSet; cfg
// supplies the registry's own operating parameters per
// config.Config — HydrationBatchSize bounds Register's hydration fan-out,
// ReorgRecoveryStrategy is read by EventApplier's revert handling, and
// HydrationToleranceExponent seeds Verify's agreement tolerance). A nil
// logger falls back to slog.Default(); a nil metrics recorder falls back to
// a no-op so tests need not wire Prometheus. cfg is defaulted via
// EnsureDefaults before use, so a zero-value config.Config is accepted.
func NewBorrowerRegistry(markets *MarketSet, chain ChainReader, logger *slog.Logger, metrics DriftRecorder, cfg config.Config) *BorrowerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopDriftRecorder{}
	}
	cfg.EnsureDefaults()
	r := &BorrowerRegistry{
		markets:            markets,
		borrowers:          make(map[Address]*BorrowerState),
		indexTable:         NewBorrowIndexTable(),
		chain:              chain,
		evaluator:          NewHealthEvaluator(markets),
		logger:             logger,
		metrics:            metrics,
		toleranceExponent:  cfg.HydrationToleranceExponent,
		hydrationBatchSize: cfg.HydrationBatchSize,
	}
	r.applier = newEventApplier(r)
	r.applier.ReorgStrategy = cfg.ReorgRecoveryStrategy
	return r
}

// SetHydrationToleranceExponent overrides the relative-error exponent Verify
// uses (see config.Config.HydrationToleranceExponent), replacing the
// default of 12. Exponent must be positive; non-positive values are ignored.
func (r *BorrowerRegistry) SetHydrationToleranceExponent(exponent int) {
	if exponent <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toleranceExponent = exponent
}

// Applier returns the registry's EventApplier, the single entry point a
// caller-owned event-ingestion loop drives.
func (r *BorrowerRegistry) Applier() *EventApplier {
	return r.applier
}

// Init primes the BorrowIndexTable for every watched market from the
// current chain head, before any borrower is registered or any event is
// applied.
func (r *BorrowerRegistry) Init(ctx context.Context) error {
	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}
	indexes := make(map[MarketId]F, r.markets.Len())
	for _, m := range r.markets.All() {
		idx, err := r.chain.BorrowIndex(ctx, m, head)
		if err != nil {
			return fmt.Errorf("%w: borrow index for %s: %v", ErrChainRead, m, err)
		}
		indexes[m] = idx
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for m, idx := range indexes {
		r.indexTable.Set(m, idx)
	}
	return nil
}

// Register hydrates and adds each new address to the watched set.
// Addresses already registered are left untouched (re-registering does not
// re-hydrate; use Verify/RefetchBorrower for that).
func (r *BorrowerRegistry) Register(ctx context.Context, addrs []Address) error {
	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	toHydrate := make([]Address, 0, len(addrs))
	r.mu.RLock()
	for _, addr := range addrs {
		if _, ok := r.borrowers[addr]; !ok {
			toHydrate = append(toHydrate, addr)
		}
	}
	r.mu.RUnlock()
	if len(toHydrate) == 0 {
		return nil
	}

	type hydrated struct {
		state *BorrowerState
		err   error
	}
	results := make([]hydrated, len(toHydrate))
	var wg sync.WaitGroup

	// HydrationBatchSize bounds how many AccountSnapshot fans hit
	// ChainReader concurrently; a semaphore caps in-flight goroutines
	// rather than launching one per address unconditionally.
	batchSize := r.hydrationBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	sem := make(chan struct{}, batchSize)

	for i, addr := range toHydrate {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, addr Address) {
			defer wg.Done()
			defer func() { <-sem }()
			state, err := r.hydrateOne(ctx, addr, head)
			results[i] = hydrated{state: state, err: err}
		}(i, addr)
	}
	wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if res.err != nil {
			return fmt.Errorf("%w: %v", ErrChainRead, res.err)
		}
		r.borrowers[res.state.Address] = res.state
	}
	return nil
}

// hydrateOne builds a fresh BorrowerState for addr by reading every
// watched market's account snapshot at atBlock. It performs no locking of
// its own and touches no shared state; callers install the result under
// the registry lock.
func (r *BorrowerRegistry) hydrateOne(ctx context.Context, addr Address, atBlock uint64) (*BorrowerState, error) {
	state := newBorrowerState(addr)
	for _, m := range r.markets.All() {
		snap, err := r.chain.AccountSnapshot(ctx, m, addr, atBlock)
		if err != nil {
			return nil, fmt.Errorf("account snapshot for %s/%s: %w", addr, m, err)
		}
		if snap.SuppliedCTokens.Sign() != 0 {
			state.supplied[m] = snap.SuppliedCTokens
		}
		if snap.BorrowBalance.Sign() != 0 {
			state.borrowPrincipal[m] = snap.BorrowBalance
			state.borrowIndexAtPrincipal[m] = snap.BorrowIndex
		}
	}
	state.LastUpdatedBlock = atBlock
	return state, nil
}

// Unregister removes addr from the watched set. Events naming an
// unregistered address are silently dropped by EventApplier.
func (r *BorrowerRegistry) Unregister(addr Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.borrowers, addr)
}

// IsRegistered reports whether addr is currently watched.
func (r *BorrowerRegistry) IsRegistered(addr Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.borrowers[addr]
	return ok
}

// Scan takes the read lock, fetches fresh exchange rates and snapshots the
// replica (borrower map and BorrowIndexTable) under it, releases it, then
// evaluates every watched borrower against the snapshot. Evaluation itself
// never holds the registry lock, so event application can proceed
// concurrently with an in-flight scan.
func (r *BorrowerRegistry) Scan(ctx context.Context, markets MarketRegistry, prices PriceLedger) ([]LiquidationCandidate, error) {
	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	r.mu.RLock()
	exchangeRates := make(map[MarketId]F, r.markets.Len())
	for _, m := range r.markets.All() {
		rate, err := r.chain.ExchangeRateStored(ctx, m, head)
		if err != nil {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: exchange rate for %s: %v", ErrChainRead, m, err)
		}
		exchangeRates[m] = rate
	}
	indexSnapshot := r.indexTable.Snapshot()
	snapshots := make([]*BorrowerState, 0, len(r.borrowers))
	for _, b := range r.borrowers {
		snapshots = append(snapshots, b.clone())
	}
	r.mu.RUnlock()

	candidates := make([]LiquidationCandidate, 0)
	for _, b := range snapshots {
		select {
		case <-ctx.Done():
			return candidates, ctx.Err()
		default:
		}
		cand, err := r.evaluator.Evaluate(b, indexSnapshot, exchangeRates, markets, prices)
		if err != nil {
			return nil, fmt.Errorf("liquidation: evaluate %s: %w", b.Address, err)
		}
		if cand != nil {
			candidates = append(candidates, *cand)
		}
	}
	return candidates, nil
}

// Verify re-hydrates addr from ChainReader and compares the result to the
// live replica within a relative tolerance, returning whether they agree.
// It mutates nothing; it is the "clear hook" spec.md §9 leaves open for a
// caller-driven consistency sampler, not wired to any periodic scheduler
// here. Returns (false, ErrUnknownBorrower) if addr is not registered.
func (r *BorrowerRegistry) Verify(ctx context.Context, addr Address) (bool, error) {
	r.mu.RLock()
	live, ok := r.borrowers[addr]
	var liveCopy *BorrowerState
	if ok {
		liveCopy = live.clone()
	}
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownBorrower, addr)
	}

	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChainRead, err)
	}
	fresh, err := r.hydrateOne(ctx, addr, head)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	r.mu.RLock()
	toleranceExponent := r.toleranceExponent
	r.mu.RUnlock()
	for _, m := range r.markets.All() {
		if !withinRelativeTolerance(liveCopy.Supplied(m), fresh.Supplied(m), toleranceExponent) {
			return false, nil
		}
		if !withinRelativeTolerance(liveCopy.BorrowPrincipal(m), fresh.BorrowPrincipal(m), toleranceExponent) {
			return false, nil
		}
	}
	return true, nil
}

// RefetchBorrower re-hydrates addr from ChainReader and replaces the live
// entry, if addr is still registered. Used by EventApplier's reorg
// recovery for event kinds that carry derived state (absolute principal,
// cumulative indexes) that cannot be safely inverted locally.
func (r *BorrowerRegistry) RefetchBorrower(ctx context.Context, addr Address) error {
	r.mu.RLock()
	_, ok := r.borrowers[addr]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}
	fresh, err := r.hydrateOne(ctx, addr, head)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, stillRegistered := r.borrowers[addr]; stillRegistered {
		r.borrowers[addr] = fresh
	}
	return nil
}

// RefetchIndex re-reads a single market's borrow index from ChainReader
// and overwrites the table entry. Used by EventApplier's reorg recovery
// for a reverted AccrueInterest event.
func (r *BorrowerRegistry) RefetchIndex(ctx context.Context, market MarketId) error {
	head, err := r.chain.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}
	idx, err := r.chain.BorrowIndex(ctx, market, head)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChainRead, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexTable.Set(market, idx)
	return nil
}
