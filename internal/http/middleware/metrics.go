// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries the Prometheus instrumentation for HTTP traffic.
// Metrics() records request counts, latency, in-flight concurrency, and
// response sizes. Labels stay at {method, path, status}, with path taken
// from the registered Gin route so a million distinct job ids collapse
// into one "/api/v1/jobs/:id" series instead of a million.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	reqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Count of HTTP requests served, by route and status.",
		},
		[]string{"method", "path", "status"},
	)

	// Latency omits the status label; cardinality on histograms costs the
	// most and the status split rarely changes a latency question.
	reqLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds, by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	reqInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Requests currently being handled.",
		},
	)

	// Accept receipts and job snapshots run a few hundred bytes; matched
	// representative lists reach a few KiB; the scrape endpoint itself is
	// the only response that grows past that.
	respSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response body size in bytes, by route.",
			Buckets: []float64{128, 256, 512, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(reqTotal, reqLatency, reqInflight, respSize)
}

// Metrics returns middleware feeding the four HTTP collectors above. Mount it
// before the routes and expose promhttp.Handler() on /metrics to scrape.
// Unrouted requests keep their raw URL path as the path label. A negative
// Size() (nothing written, or a hijacked connection) is skipped rather than
// recorded as zero.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqInflight.Inc()
		defer reqInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		method := c.Request.Method

		reqTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		reqLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			respSize.WithLabelValues(method, route).Observe(float64(n))
		}
	}
}
