// Package metrics exposes Prometheus instrumentation for the API process.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts served requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callrounded",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "callrounded",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// PlatformRequestsTotal counts outbound voice-platform calls by endpoint and outcome.
	PlatformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callrounded",
			Subsystem: "platform_client",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the voice platform",
		},
		[]string{"endpoint", "outcome"},
	)

	// SyncedRecordsTotal counts rows upserted by platform sync.
	SyncedRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callrounded",
			Subsystem: "sync",
			Name:      "records_total",
			Help:      "Total number of platform records upserted",
		},
		[]string{"kind"},
	)

	// AlertsFiredTotal counts alert rules that produced an event.
	AlertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callrounded",
			Subsystem: "alerts",
			Name:      "fired_total",
			Help:      "Total number of alert rules that fired",
		},
		[]string{"rule_type"},
	)

	// DegradedStoreOps counts store operations skipped because no database is configured.
	DegradedStoreOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "callrounded",
			Subsystem: "store",
			Name:      "degraded_ops_total",
			Help:      "Store operations served empty because no database is configured",
		},
		[]string{"op"},
	)
)

// Middleware records request count and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
