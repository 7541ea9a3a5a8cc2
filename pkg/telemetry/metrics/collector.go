package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/andrei-samofalov/yapas/pkg/config"
	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ExchangeFunc serves one request and returns the response together with the
// handler kind that produced it. The server's per-exchange entry point has
// this shape so the collector can wrap it.
type ExchangeFunc func(ctx context.Context, req *message.Message) (resp *message.Message, kind string)

// Summary is the running request total since the last report.
type Summary struct {
	Count   uint64
	Total   time.Duration
	Average time.Duration
}

// Collector owns all metrics of one server instance.
//
// It keeps two views of the same traffic: an in-process running total
// (count and accumulated wall time) that Report logs and resets, and the
// Prometheus series, which are only recorded when metrics are enabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry
	logger   *slog.Logger

	// Request metrics
	requestMetrics *RequestMetrics

	// Response cache metrics
	cacheMetrics *CacheMetrics

	mu    sync.Mutex
	count uint64
	total time.Duration
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created so
// that several collectors can live in one process.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Namespace: "yapas",
//		Subsystem: "proxy",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets()
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		logger:         slog.Default().With("component", "metrics"),
		requestMetrics: NewRequestMetrics(cfg, registry),
		cacheMetrics:   NewCacheMetrics(cfg, registry),
	}
}

// Enabled reports whether Prometheus series are recorded.
func (c *Collector) Enabled() bool {
	return c.config.IsEnabled()
}

// Wrap decorates the per-exchange entry point. Every invocation is counted,
// timed and logged; request and response are passed through untouched.
func (c *Collector) Wrap(next ExchangeFunc) ExchangeFunc {
	return func(ctx context.Context, req *message.Message) (*message.Message, string) {
		start := time.Now()
		resp, kind := next(ctx, req)
		c.RecordExchange(ctx, kind, req, resp, time.Since(start))
		return resp, kind
	}
}

// RecordExchange records one completed exchange. req or resp may be nil when
// the request could not be parsed or no response was produced.
func (c *Collector) RecordExchange(ctx context.Context, kind string, req, resp *message.Message, elapsed time.Duration) {
	c.mu.Lock()
	c.count++
	c.total += elapsed
	c.mu.Unlock()

	status := 0
	if resp != nil {
		status = resp.StatusLine().StatusCode()
	}

	args := []any{"kind", kind, "status", status, "elapsed", elapsed}
	if req != nil {
		line := req.StatusLine()
		args = append(args, "method", line.Method, "path", line.Path)
	}
	logging.WithContext(c.logger, ctx).Info("request served", args...)

	if !c.Enabled() {
		return
	}

	c.requestMetrics.RecordRequest(kind, status, elapsed)
	if req != nil {
		c.requestMetrics.RecordSize("request", len(req.Bytes()))
	}
	if resp != nil {
		c.requestMetrics.RecordSize("response", len(resp.Bytes()))
	}
}

// RecordUpstreamError records a failed upstream operation.
//
// Parameters:
//   - op: "dial", "write" or "read"
func (c *Collector) RecordUpstreamError(op string) {
	if !c.Enabled() {
		return
	}

	c.requestMetrics.RecordUpstreamError(op)
}

// Snapshot returns the running total without resetting it.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return summarize(c.count, c.total)
}

// Report logs the running total and resets it.
func (c *Collector) Report() Summary {
	c.mu.Lock()
	s := summarize(c.count, c.total)
	c.count = 0
	c.total = 0
	c.mu.Unlock()

	c.logger.Info("metrics report",
		"requests", s.Count,
		"total", s.Total,
		"average", s.Average,
	)

	return s
}

func summarize(count uint64, total time.Duration) Summary {
	s := Summary{Count: count, Total: total}
	if count > 0 {
		s.Average = total / time.Duration(count)
	}
	return s
}

// CacheMetrics returns the cache metric set. It satisfies cache.Observer.
func (c *Collector) CacheMetrics() *CacheMetrics {
	return c.cacheMetrics
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteText writes every registered metric family to w in the Prometheus text
// exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
