package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andrei-samofalov/yapas/pkg/config"
)

// Lookup results recorded by CacheMetrics.
const (
	lookupHit  = "hit"
	lookupMiss = "miss"
)

// CacheMetrics receives the events of a cache.ResponseCache and exposes them
// as Prometheus series. It satisfies cache.Observer.
//
//	<ns>_<sub>_cache_lookups_total{cache,result}    result: hit | miss
//	<ns>_<sub>_cache_entries{cache}
//	<ns>_<sub>_cache_evictions_total{cache,reason}  reason: ttl | lru | invalidated
type CacheMetrics struct {
	lookups   *prometheus.CounterVec
	entries   *prometheus.GaugeVec
	evictions *prometheus.CounterVec
}

// NewCacheMetrics creates the cache series and registers them with registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"cache", "result"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_entries",
			Help:      "Responses currently held, including stale entries not yet collected.",
		}, []string{"cache"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_evictions_total",
			Help:      "Responses removed from the cache by reason.",
		}, []string{"cache", "reason"}),
	}

	registry.MustRegister(cm.lookups, cm.entries, cm.evictions)
	return cm
}

func (cm *CacheMetrics) RecordHit(cacheName string) {
	cm.lookups.WithLabelValues(cacheName, lookupHit).Inc()
}

func (cm *CacheMetrics) RecordMiss(cacheName string) {
	cm.lookups.WithLabelValues(cacheName, lookupMiss).Inc()
}

// RecordEviction counts one removed entry. reason is one of the
// cache.Evict* values.
func (cm *CacheMetrics) RecordEviction(cacheName, reason string) {
	cm.evictions.WithLabelValues(cacheName, reason).Inc()
}

func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}
