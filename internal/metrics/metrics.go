// Package metrics provides Prometheus metrics for the minifigure tracker.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minifig_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minifig_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Remote backend Metrics
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minifig_remote_requests_total",
			Help: "Requests made to the minifigure backend",
		},
		[]string{"op", "result"}, // result: "success" or "failed"
	)

	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minifig_remote_request_duration_seconds",
			Help:    "Minifigure backend call latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"op"},
	)

	// Refresh Metrics
	RefreshInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minifig_refresh_in_progress",
			Help: "1 while a bulk price refresh is running",
		},
	)

	RefreshRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minifig_refresh_rejected_total",
			Help: "Bulk refreshes rejected because one was already running",
		},
	)

	// Collection Metrics
	CollectionMinifigures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "minifig_collection_minifigures",
			Help: "Number of records in the collection",
		},
	)

	CollectionValueEUR = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "minifig_collection_value_eur",
			Help: "Collection value in EUR by condition",
		},
		[]string{"condition"}, // "new", "used"
	)

	// Chart cache Metrics
	ChartCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minifig_chart_cache_hits_total",
			Help: "Chart cache hit count",
		},
	)

	ChartCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "minifig_chart_cache_misses_total",
			Help: "Chart cache miss count",
		},
	)
)

// UpdateCollectionMetrics publishes the size and value of the full collection
func UpdateCollectionMetrics(count int, newTotal, usedTotal decimal.Decimal) {
	CollectionMinifigures.Set(float64(count))
	CollectionValueEUR.WithLabelValues("new").Set(newTotal.InexactFloat64())
	CollectionValueEUR.WithLabelValues("used").Set(usedTotal.InexactFloat64())
}

// ObserveRemote records the outcome of one backend call
func ObserveRemote(op string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	RemoteRequestsTotal.WithLabelValues(op, result).Inc()
	RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// GinMiddleware records request counts and latency per route template
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
