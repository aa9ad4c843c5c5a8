package liquidation

import "time"

// ReconnectPolicy governs how an EventSource-driving loop backs off after
// a subscription failure. It answers spec.md §9's open question on
// reconnect behavior; the default mirrors the bounded exponential backoff
// the teacher's rpcclient layer uses for its own retry loop.
type ReconnectPolicy struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	MaxAttempts    int // 0 means unbounded
}

// DefaultReconnectPolicy backs off from 500ms to a 30s ceiling, doubling
// each attempt, with no attempt limit — an EventSource outage is expected
// to be transient, not terminal.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		MaxAttempts:    0,
	}
}

// NextBackoff returns the delay to wait before reconnect attempt number
// attempt (1-indexed), clamped to MaxBackoff.
func (p ReconnectPolicy) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= p.Multiplier
		if time.Duration(backoff) >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	d := time.Duration(backoff)
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Exhausted reports whether attempt has used up the configured attempt
// budget (always false when MaxAttempts is 0, i.e. unbounded).
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
