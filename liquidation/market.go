package liquidation

import "sort"

// MarketId names one watched lending market (one per cToken), following
// the teacher's Market.PoolID string-symbol convention rather than a bare
// integer index.
type MarketId string

// MarketSet is the fixed enumeration of markets a registry is configured
// to track, supplied once at construction time. Any event or lookup
// referencing a MarketId outside this set is rejected rather than
// silently admitted.
type MarketSet struct {
	known   map[MarketId]struct{}
	ordered []MarketId
}

// NewMarketSet builds a MarketSet from the given markets, deduplicating
// and recording a stable ascending order used for deterministic iteration
// (argmax tie-breaks in HealthEvaluator resolve to the lowest MarketId by
// walking this order).
func NewMarketSet(markets ...MarketId) *MarketSet {
	known := make(map[MarketId]struct{}, len(markets))
	for _, m := range markets {
		known[m] = struct{}{}
	}
	ordered := make([]MarketId, 0, len(known))
	for m := range known {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return &MarketSet{known: known, ordered: ordered}
}

// Contains reports whether m is part of the watched set.
func (s *MarketSet) Contains(m MarketId) bool {
	if s == nil {
		return false
	}
	_, ok := s.known[m]
	return ok
}

// All returns the watched markets in ascending MarketId order.
func (s *MarketSet) All() []MarketId {
	if s == nil {
		return nil
	}
	out := make([]MarketId, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Len reports the number of watched markets.
func (s *MarketSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ordered)
}
