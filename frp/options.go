package frp

import "github.com/cascadelabs/reactive-go/frp/emit"

// engineConfig accumulates Option values before New constructs an Engine.
// Mirrors the teacher's functional-options layering: each Option mutates
// the config and can fail validation before the Engine exists.
type engineConfig struct {
	emitter         emit.Emitter
	metrics         *PrometheusMetrics
	maxRank         int
	maxRegenDepth   int
	strongDefault   bool
	strictSampling  bool
}

func defaultConfig() *engineConfig {
	return &engineConfig{
		emitter:       emit.NewNullEmitter(),
		maxRank:       1 << 20,
		maxRegenDepth: 10_000,
		strongDefault: false,
	}
}

// Option configures an Engine at construction time.
type Option func(*engineConfig) error

// WithEmitter attaches an observability sink (C_obs) that receives an
// event for every transaction phase transition (open, propagating, last,
// post, closed or aborted). Individual node firings are not emitted.
// Defaults to a NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(c *engineConfig) error {
		c.emitter = e
		return nil
	}
}

// WithMetrics attaches Prometheus counters/gauges/histograms for
// transactions, queue depth, rank regenerations, and propagation latency.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(c *engineConfig) error {
		c.metrics = m
		return nil
	}
}

// WithMaxRank bounds the highest rank a node may be regenerated to.
// Exceeding it poisons the engine with ErrRankOverflow. Defaults to
// 1<<20, comfortably above any graph built by hand rather than by a
// runaway construction loop.
func WithMaxRank(n int) Option {
	return func(c *engineConfig) error {
		if n <= 0 {
			return ErrRankOverflow
		}
		c.maxRank = n
		return nil
	}
}

// WithMaxRegenerationDepth bounds the recursion depth of rank
// regeneration. A true cycle in the graph (one not broken by a loop
// placeholder) recurses without bound; exceeding this poisons the engine
// with ErrCycleDetected.
func WithMaxRegenerationDepth(n int) Option {
	return func(c *engineConfig) error {
		if n <= 0 {
			return ErrCycleDetected
		}
		c.maxRegenDepth = n
		return nil
	}
}

// WithStrictSampling makes Cell.TrySample return ErrSampleOutsideTransaction
// when called with no transaction open on the engine. Cell.Sample itself
// is unaffected and always succeeds; TrySample exists for callers who
// want to enforce that sampling only happens as part of a deliberate
// propagation step.
func WithStrictSampling() Option {
	return func(c *engineConfig) error {
		c.strictSampling = true
		return nil
	}
}

// WithStrongRetention makes every Listen call strong by default (the
// engine records the listener in its keep-alive set for its own
// lifetime, as if the caller had called Listener.Hold). Off by default.
// Either way a listener keeps firing until Unlisten is called.
func WithStrongRetention() Option {
	return func(c *engineConfig) error {
		c.strongDefault = true
		return nil
	}
}
