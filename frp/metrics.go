package frp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exports the engine's runtime behavior as Prometheus
// instruments, the same shape as the teacher's graph metrics: counters
// for discrete occurrences, a gauge for the live queue depth, and a
// histogram for propagation latency.
type PrometheusMetrics struct {
	transactionsTotal    prometheus.Counter
	rankRegenerations    prometheus.Counter
	queueDepth           prometheus.Gauge
	activeListeners      prometheus.Gauge
	propagationLatencyMs prometheus.Histogram
}

// NewPrometheusMetrics registers the engine's instruments against
// registry under the "reactive" namespace.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(registry)
	return &PrometheusMetrics{
		transactionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reactive",
			Name:      "transactions_total",
			Help:      "Number of transactions opened via Engine.RunTransaction.",
		}),
		rankRegenerations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "reactive",
			Name:      "rank_regenerations_total",
			Help:      "Number of times linking an edge forced a rank regeneration.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactive",
			Name:      "queue_depth",
			Help:      "Current number of pending firings in the active transaction's queue.",
		}),
		activeListeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "reactive",
			Name:      "active_listeners",
			Help:      "Number of strongly-retained listeners currently held by the engine.",
		}),
		propagationLatencyMs: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "reactive",
			Name:      "propagation_latency_ms",
			Help:      "Wall-clock time to drain a transaction's propagating phase, in milliseconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *PrometheusMetrics) observePropagation(start time.Time) {
	m.propagationLatencyMs.Observe(float64(time.Since(start).Milliseconds()))
}
