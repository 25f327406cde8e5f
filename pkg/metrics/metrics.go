// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RelayDuration tracks end-to-end chat relay duration.
	RelayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_relay_duration_seconds",
			Help:    "Chat relay request duration from validation to stream close",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"mode", "status"},
	)

	// RelayChunksTotal tracks content fragments forwarded to clients.
	RelayChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_relay_chunks_total",
			Help: "Total content fragments relayed downstream",
		},
	)

	// UpstreamCallsTotal tracks calls against the assistant provider.
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_upstream_calls_total",
			Help: "Total upstream assistant API calls",
		},
		[]string{"operation", "status"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// RateLimitRejectionsTotal tracks requests rejected by the chat limiter.
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_rate_limit_rejections_total",
			Help: "Total chat requests rejected by the rate limiter",
		},
	)

	// HistoryWritesTotal tracks durable history mirror writes.
	HistoryWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_writes_total",
			Help: "Total history store writes",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordRelay records metrics for a completed chat relay.
func RecordRelay(mode, status string, duration float64) {
	RelayDuration.WithLabelValues(mode, status).Observe(duration)
}

// RecordUpstreamCall records an upstream assistant API call.
func RecordUpstreamCall(operation, status string) {
	UpstreamCallsTotal.WithLabelValues(operation, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
