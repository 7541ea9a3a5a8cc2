package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/andrei-samofalov/yapas/pkg/message"
	"github.com/andrei-samofalov/yapas/pkg/proxy/types"
	"github.com/andrei-samofalov/yapas/pkg/telemetry/metrics"
)

// MetricsContentType is the Prometheus text exposition content type.
const MetricsContentType = "text/plain; version=0.0.4; charset=utf-8"

var metricsMethods = []string{http.MethodGet}

// MetricsHandler triggers a report of the running totals and returns the
// registry in the Prometheus text format.
type MetricsHandler struct {
	collector *metrics.Collector
}

// NewMetricsHandler creates a metrics handler for collector.
func NewMetricsHandler(collector *metrics.Collector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

// Handle reports and resets the running totals. The body starts with a
// comment line carrying the reported summary.
func (h *MetricsHandler) Handle(_ context.Context, req *message.Message) (*message.Message, error) {
	method := req.StatusLine().Method
	if method != http.MethodGet {
		return nil, &types.MethodNotAllowedError{Method: method, Allowed: metricsMethods}
	}

	summary := h.collector.Report()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# yapas report: requests=%d total=%s average=%s\n",
		summary.Count, summary.Total, summary.Average)
	if err := h.collector.WriteText(&buf); err != nil {
		return nil, err
	}

	resp := message.NewResponse(http.StatusOK, buf.Bytes())
	resp.AddHeader(message.HeaderContentType, MetricsContentType)
	resp.AddHeader(message.HeaderContentLength, strconv.Itoa(buf.Len()))
	return resp, nil
}
