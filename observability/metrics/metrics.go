// Package metrics registers the Prometheus instrumentation the scanner
// exposes, following the sync.Once-guarded singleton pattern the teacher
// uses in network/metrics.go for its relay counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Scanner implements liquidation.DriftRecorder against real Prometheus
// collectors, plus the scan-level instrumentation Scan callers record
// directly.
type Scanner struct {
	candidatesEmitted prometheus.Counter
	scanDuration      prometheus.Histogram
	stateDrift        *prometheus.CounterVec
	reorgRecoveries   *prometheus.CounterVec
}

var (
	once     sync.Once
	instance *Scanner
)

// Default returns the process-wide Scanner metrics instance, registering
// its collectors with the default Prometheus registry exactly once.
func Default() *Scanner {
	once.Do(func() {
		instance = &Scanner{
			candidatesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "liquidator",
				Subsystem: "scanner",
				Name:      "candidates_emitted_total",
				Help:      "Total liquidation candidates surfaced by a completed scan.",
			}),
			scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "liquidator",
				Subsystem: "scanner",
				Name:      "scan_duration_seconds",
				Help:      "Wall-clock duration of a single BorrowerRegistry.Scan call.",
				Buckets:   prometheus.DefBuckets,
			}),
			stateDrift: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidator",
				Subsystem: "scanner",
				Name:      "state_drift_total",
				Help:      "Occurrences of a saturating subtraction during event application, by market.",
			}, []string{"market"}),
			reorgRecoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "liquidator",
				Subsystem: "scanner",
				Name:      "reorg_recoveries_total",
				Help:      "Reverted events recovered via ChainReader refetch, by market.",
			}, []string{"market"}),
		}
		prometheus.MustRegister(
			instance.candidatesEmitted,
			instance.scanDuration,
			instance.stateDrift,
			instance.reorgRecoveries,
		)
	})
	return instance
}

// RecordDrift implements liquidation.DriftRecorder.
func (s *Scanner) RecordDrift(market string) {
	s.stateDrift.WithLabelValues(market).Inc()
}

// RecordReorgRecovery implements liquidation.DriftRecorder.
func (s *Scanner) RecordReorgRecovery(market string) {
	s.reorgRecoveries.WithLabelValues(market).Inc()
}

// ObserveScanDuration records how long a Scan call took, in seconds.
func (s *Scanner) ObserveScanDuration(seconds float64) {
	s.scanDuration.Observe(seconds)
}

// AddCandidatesEmitted increments the candidates counter by n.
func (s *Scanner) AddCandidatesEmitted(n int) {
	s.candidatesEmitted.Add(float64(n))
}
