package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// cacheOptions holds optional configuration shared by the implementations.
type cacheOptions[V any] struct {
	evictCallback EvictCallback[V]
	registerer    prometheus.Registerer
	metricsPrefix string
}

// Option is a functional option for cache construction.
type Option[V any] func(*cacheOptions[V])

// WithEvictCallback sets a callback invoked for every evicted entry.
func WithEvictCallback[V any](fn EvictCallback[V]) Option[V] {
	return func(o *cacheOptions[V]) {
		o.evictCallback = fn
	}
}

// WithMetrics registers hit/miss/eviction counters and a size gauge with
// the given Prometheus registerer under the prefix.
func WithMetrics[V any](reg prometheus.Registerer, prefix string) Option[V] {
	return func(o *cacheOptions[V]) {
		o.registerer = reg
		o.metricsPrefix = prefix
	}
}

// cacheMetrics holds the optional Prometheus collectors.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// newCacheMetrics creates and registers the collectors.
func newCacheMetrics(reg prometheus.Registerer, prefix string) (*cacheMetrics, error) {
	m := &cacheMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_hits_total",
			Help: "Total cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_misses_total",
			Help: "Total cache misses",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_evictions_total",
			Help: "Total cache evictions",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_size",
			Help: "Current number of cache entries",
		}),
	}

	for _, c := range []prometheus.Collector{m.hits, m.misses, m.evictions, m.size} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
