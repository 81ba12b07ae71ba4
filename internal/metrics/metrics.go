// Package metrics exposes Prometheus instrumentation for the core engine.
//
// What: counters/gauges for buffer pool occupancy and eviction, transaction
// outcomes, and optimizer rule activity, registered against the
// callback stream each subsystem already exposes.
// How: modeled directly on cuemby-warren's pkg/metrics — package-level
// prometheus collector variables registered once against a Registry
// supplied by the caller (so tests can use their own isolated registry
// instead of the global default).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BufferPins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedb_buffer_pins_total",
			Help: "Total number of buffer pool pin operations.",
		},
		[]string{"outcome"}, // hit, fault, fault_evict
	)

	BufferEvictedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "beedb_buffer_evicted_frames_total",
			Help: "Number of pin operations that evicted a resident page or consumed an initial empty frame.",
		},
	)

	BufferFramesInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "beedb_buffer_frames_in_use",
			Help: "Number of buffer pool frames currently holding a resident page.",
		},
	)

	TxnBegins = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "beedb_txn_begins_total",
			Help: "Total number of transactions started.",
		},
	)

	TxnOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedb_txn_outcomes_total",
			Help: "Total number of transactions by terminal outcome.",
		},
		[]string{"outcome"}, // committed, aborted
	)

	OptimizerRuleFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beedb_optimizer_rule_fires_total",
			Help: "Total number of times an optimizer rule rewrote the plan.",
		},
		[]string{"rule"},
	)
)

// Register adds every collector to reg. Safe to call multiple times against
// different registries (e.g. the global registry in production, a fresh
// one per test).
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		BufferPins,
		BufferEvictedFrames,
		BufferFramesInUse,
		TxnBegins,
		TxnOutcomes,
		OptimizerRuleFires,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
