package liquidation

import (
	"fmt"
	"sort"
)

// HealthEvaluator computes a borrower's health factor from a point-in-time
// snapshot and, for underwater accounts, the most profitable (repay,
// seize) market pair. Evaluate is a pure function of its arguments: the
// same snapshot always yields the same candidate, with no dependency on
// wall-clock time or evaluation order across borrowers.
type HealthEvaluator struct {
	markets *MarketSet
}

// NewHealthEvaluator builds an evaluator over the given watched markets.
func NewHealthEvaluator(markets *MarketSet) *HealthEvaluator {
	return &HealthEvaluator{markets: markets}
}

type marketEval struct {
	market        MarketId
	supplyEth     F
	borrowEth     F
	collateralEth F
}

// Evaluate returns nil, nil when the borrower is healthy or has no
// seizable collateral, nil, nil when no postable price attestation is
// available (StaleAttestation, per spec.md §7 — dropped silently rather
// than surfaced as an error since the caller has no retry that would
// change the outcome within the same scan), and an error when an input
// collaborator fails or a market the borrower owes in has no borrow index
// (ErrUninitializedIndex).
func (h *HealthEvaluator) Evaluate(
	borrower *BorrowerState,
	borrowIndex map[MarketId]F,
	exchangeRate map[MarketId]F,
	markets MarketRegistry,
	prices PriceLedger,
) (*LiquidationCandidate, error) {
	evals := make([]marketEval, 0, h.markets.Len())
	totalCollateralEth := Zero
	totalBorrowEth := Zero

	for _, m := range h.markets.All() {
		exRate, haveRate := exchangeRate[m]
		if !haveRate {
			continue
		}
		price, err := prices.Price(m)
		if err != nil {
			return nil, fmt.Errorf("liquidation: price for market %s: %w", m, err)
		}

		supplyUnderlying := borrower.Supplied(m).Mul(exRate)
		supplyEth := supplyUnderlying.Mul(price)

		var borrowEth F
		if principal := borrower.BorrowPrincipal(m); !principal.IsZero() {
			idx, haveIdx := borrowIndex[m]
			if !haveIdx {
				return nil, fmt.Errorf("%w: %s", ErrUninitializedIndex, m)
			}
			owed, err := borrower.OwedUnderlying(m, idx)
			if err != nil {
				return nil, fmt.Errorf("liquidation: owed underlying for market %s: %w", m, err)
			}
			borrowEth = owed.Mul(price)
		}

		cf, err := markets.CollateralFactor(m)
		if err != nil {
			return nil, fmt.Errorf("liquidation: collateral factor for market %s: %w", m, err)
		}
		collateralEth := supplyEth.Mul(cf)

		totalCollateralEth = totalCollateralEth.Add(collateralEth)
		totalBorrowEth = totalBorrowEth.Add(borrowEth)

		evals = append(evals, marketEval{market: m, supplyEth: supplyEth, borrowEth: borrowEth, collateralEth: collateralEth})
	}

	if totalBorrowEth.IsZero() {
		// No debt anywhere: health factor is infinite, never a candidate.
		return nil, nil
	}

	// health = totalCollateralEth / totalBorrowEth; liquidatable iff < 1,
	// i.e. totalCollateralEth < totalBorrowEth. Compared directly to avoid
	// a division that could otherwise mask a zero-collateral edge case.
	if totalCollateralEth.Cmp(totalBorrowEth) >= 0 {
		return nil, nil
	}

	sort.Slice(evals, func(i, j int) bool { return evals[i].market < evals[j].market })

	repay := evals[0]
	for _, e := range evals[1:] {
		if e.borrowEth.Cmp(repay.borrowEth) > 0 {
			repay = e
		}
	}

	var seize *marketEval
	for i := range evals {
		e := evals[i]
		if e.supplyEth.IsZero() {
			continue
		}
		isCollateral, err := markets.IsCollateral(borrower.Address, e.market)
		if err != nil {
			return nil, fmt.Errorf("liquidation: collateral membership for market %s: %w", e.market, err)
		}
		if !isCollateral {
			continue
		}
		if seize == nil || e.supplyEth.Cmp(seize.supplyEth) > 0 {
			seize = &evals[i]
		}
	}
	if seize == nil {
		// Underwater but nothing enrolled as collateral is seizable.
		return nil, nil
	}

	closeFactor, err := markets.CloseFactor()
	if err != nil {
		return nil, fmt.Errorf("liquidation: close factor: %w", err)
	}
	incentive, err := markets.LiquidationIncentive()
	if err != nil {
		return nil, fmt.Errorf("liquidation: liquidation incentive: %w", err)
	}

	maxRepayEth := repay.borrowEth.Mul(closeFactor)
	bonusedSeizeEth := maxRepayEth.Mul(incentive)

	maxSeizeEth := bonusedSeizeEth
	if seize.supplyEth.Cmp(maxSeizeEth) < 0 {
		maxSeizeEth = seize.supplyEth
	}

	// expectedRevenueEth = maxSeizeEth - maxSeizeEth/incentive: the bonus
	// portion of the seized collateral above what was repaid in value.
	seizeAtCost, err := maxSeizeEth.Quo(incentive)
	if err != nil {
		return nil, fmt.Errorf("liquidation: revenue computation: %w", err)
	}
	revenueEth, ok := maxSeizeEth.Sub(seizeAtCost)
	if !ok || revenueEth.IsZero() {
		// Candidate soundness (spec.md §8): never surface a non-positive
		// expected-revenue candidate.
		return nil, nil
	}

	symbols := []string{string(repay.market), string(seize.market)}
	edges := buildPriceEdges(repay.market, seize.market, prices)
	attestations, ok := prices.GetPostableFormat(symbols, edges)
	if !ok {
		return nil, nil
	}

	return &LiquidationCandidate{
		Address:            borrower.Address,
		RepayMarket:        repay.market,
		SeizeMarket:        seize.market,
		Attestations:       attestations,
		ExpectedRevenueEth: revenueEth,
	}, nil
}

// buildPriceEdges constructs a +/-1% acceptance envelope around the
// currently observed prices for the two markets a liquidation call would
// need to attest. The exact envelope width is a policy choice left open by
// spec.md §9; 1% mirrors a conservative staleness/slippage bound and is
// recorded as a deliberate Open Question resolution in DESIGN.md.
var (
	onePercent   = MustFromDecimalString("0.01")
	oneWholeUnit = FromInt64(1)
)

func buildPriceEdges(repayMarket, seizeMarket MarketId, prices PriceLedger) []PriceEdge {
	edges := make([]PriceEdge, 0, 2)
	lowFactor, _ := oneWholeUnit.Sub(onePercent)
	highFactor := oneWholeUnit.Add(onePercent)
	for _, m := range []MarketId{repayMarket, seizeMarket} {
		price, err := prices.Price(m)
		if err != nil {
			continue
		}
		edges = append(edges, PriceEdge{
			Symbol: string(m),
			Min:    price.Mul(lowFactor),
			Max:    price.Mul(highFactor),
		})
	}
	return edges
}
