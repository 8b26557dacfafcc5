package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks the liquidation pipeline. A nil *Metrics is valid and
// records nothing, so tests can run without a registry.
type Metrics struct {
	batchesTotal      *prometheus.CounterVec
	positionsTotal    prometheus.Counter
	batchDuration     prometheus.Histogram
	unauthorizedTotal prometheus.Counter
	nativeSweepsTotal prometheus.Counter
}

// NewMetrics registers the pipeline metrics on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fee_liquidator",
			Name:      "batches_total",
			Help:      "Processed batches by outcome.",
		}, []string{"outcome"}),
		positionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fee_liquidator",
			Name:      "positions_total",
			Help:      "LP positions unwound in committed batches.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fee_liquidator",
			Name:      "batch_duration_seconds",
			Help:      "Wall time per batch.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		unauthorizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fee_liquidator",
			Name:      "unauthorized_total",
			Help:      "Gated operations rejected for bad callers.",
		}),
		nativeSweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fee_liquidator",
			Name:      "native_sweeps_total",
			Help:      "Native-balance sweeps executed.",
		}),
	}
	reg.MustRegister(
		m.batchesTotal,
		m.positionsTotal,
		m.batchDuration,
		m.unauthorizedTotal,
		m.nativeSweepsTotal,
	)
	return m
}

func (m *Metrics) batchDone(outcome string, positions int, seconds float64) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(outcome).Inc()
	if outcome == "committed" {
		m.positionsTotal.Add(float64(positions))
	}
	m.batchDuration.Observe(seconds)
}

func (m *Metrics) unauthorized() {
	if m == nil {
		return
	}
	m.unauthorizedTotal.Inc()
}

func (m *Metrics) nativeSwept() {
	if m == nil {
		return
	}
	m.nativeSweepsTotal.Inc()
}
