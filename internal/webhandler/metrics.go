package webhandler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	vldRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vld_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	vldRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vld_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	vldVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vld_verifications_total",
		Help: "Total verification requests by kind and outcome.",
	}, []string{"kind", "outcome"})

	vldDigestSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vld_digest_saves_total",
		Help: "Total digests saved through the API.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		vldRequestsTotal.WithLabelValues(method, path, status).Inc()
		vldRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordVerification records a block or proof verification result.
func RecordVerification(kind string, valid bool) {
	if valid {
		vldVerificationsTotal.WithLabelValues(kind, "valid").Inc()
	} else {
		vldVerificationsTotal.WithLabelValues(kind, "invalid").Inc()
	}
}

// RecordDigestSave records a digest saved through the API.
func RecordDigestSave() {
	vldDigestSavesTotal.Inc()
}
