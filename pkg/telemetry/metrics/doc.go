// Package metrics provides request accounting and Prometheus metrics for
// yapas.
//
// # Overview
//
// A Collector is owned by one server instance and wraps its per-exchange
// entry point. For every exchange it increments a running count, accumulates
// the elapsed wall time and logs the request line, status and duration.
// Report logs the running totals (average = accumulated / count) and resets
// them; it is triggered by the metrics location or by a ReportScheduler.
//
// # Metrics
//
// When telemetry.metrics.enabled is true the collector also records:
//
//	yapas_proxy_requests_total{kind,status}
//	yapas_proxy_request_duration_seconds{kind}
//	yapas_proxy_message_size_bytes{direction}
//	yapas_proxy_upstream_errors_total{op}
//	yapas_proxy_cache_lookups_total{cache,result}
//	yapas_proxy_cache_entries{cache}
//	yapas_proxy_cache_evictions_total{cache,reason}
//
// WriteText renders the registry in the Prometheus text exposition format;
// the metrics location returns it as the response body.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	serve := collector.Wrap(server.exchange)
//
//	scheduler := metrics.NewReportScheduler(collector, cfg.Telemetry.Metrics.ReportSchedule)
//	if err := scheduler.Start(ctx); err != nil {
//	    return err
//	}
package metrics
