package mcp

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evtrack",
		Subsystem: "mcp",
		Name:      "requests_total",
		Help:      "MCP requests received, by method and outcome.",
	}, []string{"method", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "evtrack",
		Subsystem: "mcp",
		Name:      "request_duration_seconds",
		Help:      "MCP request handling time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

// metricsMiddleware counts requests and times their handling. Tool calls
// that return an error result count as "tool_error".
func metricsMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			requestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			requestsTotal.WithLabelValues(method, outcome(result, err)).Inc()
			return result, err
		}
	}
}

func outcome(result sdkmcp.Result, err error) string {
	if err != nil {
		return "error"
	}
	if r, ok := result.(*sdkmcp.CallToolResult); ok && r != nil && r.IsError {
		return "tool_error"
	}
	return "ok"
}
