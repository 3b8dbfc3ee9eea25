// Package metrics exposes Prometheus collectors for tool and upstream activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentao_mcp_tool_calls_total",
		Help: "Completed MCP tool calls by tool name and result.",
	}, []string{"tool", "result"})

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zentao_upstream_request_duration_seconds",
		Help:    "Duration of upstream ZenTao API requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	tokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zentao_token_refreshes_total",
		Help: "Token resolutions by source (cache or login).",
	}, []string{"source"})
)

// ObserveToolCall records one finished tool call.
func ObserveToolCall(tool, result string) {
	toolCalls.WithLabelValues(tool, result).Inc()
}

// ObserveUpstreamRequest records the duration of one upstream HTTP exchange.
func ObserveUpstreamRequest(method string, status int, duration time.Duration) {
	upstreamDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveTokenResolution records one token resolution by source.
func ObserveTokenResolution(source string) {
	tokenRefreshes.WithLabelValues(source).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
