package metrics

import (
	"strconv"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks metrics related to request/response exchanges.
//
// Metrics:
//   - yapas_proxy_requests_total: Total exchanges by handler kind and status code
//   - yapas_proxy_request_duration_seconds: Exchange duration histogram by handler kind
//   - yapas_proxy_message_size_bytes: Serialized request/response size
//   - yapas_proxy_upstream_errors_total: Upstream failures by operation
type RequestMetrics struct {
	// Total exchange count
	requestsTotal *prometheus.CounterVec

	// Exchange duration histogram
	requestDuration *prometheus.HistogramVec

	// Request/response size in bytes
	sizeBytes *prometheus.HistogramVec

	// Upstream dial/write/read failures
	upstreamErrors *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of requests served",
			},
			[]string{"kind", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of request/response exchanges in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"kind"},
		),

		sizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "message_size_bytes",
				Help:      "Size of serialized requests and responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
			},
			[]string{"direction"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "upstream_errors_total",
				Help:      "Total number of failed upstream exchanges",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.sizeBytes,
		rm.upstreamErrors,
	)

	return rm
}

// RecordRequest records the outcome of one exchange.
//
// Parameters:
//   - kind: Handler kind that produced the response ("proxy", "static", ...)
//   - status: Numeric status code written to the client
//   - duration: Exchange duration
func (rm *RequestMetrics) RecordRequest(kind string, status int, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	rm.requestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSize records the size of a request or response.
//
// Parameters:
//   - direction: "request" or "response"
//   - sizeBytes: Size in bytes
func (rm *RequestMetrics) RecordSize(direction string, sizeBytes int) {
	if sizeBytes > 0 {
		rm.sizeBytes.WithLabelValues(direction).Observe(float64(sizeBytes))
	}
}

// RecordUpstreamError records a failed upstream operation ("dial", "write", "read").
func (rm *RequestMetrics) RecordUpstreamError(op string) {
	rm.upstreamErrors.WithLabelValues(op).Inc()
}
