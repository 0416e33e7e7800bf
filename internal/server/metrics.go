package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	dvDocumentsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docvault_documents_total",
		Help: "Number of documents currently in the Merkle tree.",
	})

	dvRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docvault_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	dvRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docvault_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	dvVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docvault_verifications_total",
		Help: "Document verifications by stage and result.",
	}, []string{"stage", "result"})

	dvLedgerCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docvault_ledger_commits_total",
		Help: "Ledger commits by mode (real or simulated).",
	}, []string{"mode"})

	dvAuditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docvault_audit_queue_depth",
		Help: "Pending operations in the audit log queue.",
	})

	dvIntegritySweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docvault_integrity_sweeps_total",
		Help: "Background integrity sweeps by result.",
	}, []string{"result"})
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

		dvRequestsTotal.WithLabelValues(method, path, status).Inc()
		dvRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordVerification records a document verification outcome.
func RecordVerification(stage string, verified bool) {
	result := "failure"
	if verified {
		result = "success"
	}
	dvVerificationsTotal.WithLabelValues(stage, result).Inc()
}

// RecordLedgerCommit records an anchored commit by backend mode.
func RecordLedgerCommit(simulated bool) {
	mode := "real"
	if simulated {
		mode = "simulated"
	}
	dvLedgerCommitsTotal.WithLabelValues(mode).Inc()
}

// RecordIntegritySweep records a background sweep result.
func RecordIntegritySweep(success bool) {
	if success {
		dvIntegritySweepsTotal.WithLabelValues("success").Inc()
	} else {
		dvIntegritySweepsTotal.WithLabelValues("failure").Inc()
	}
}

// SetDocumentsGauge sets the live document count gauge.
func SetDocumentsGauge(count int) {
	dvDocumentsTotal.Set(float64(count))
}

// SetQueueDepthGauge sets the audit queue depth gauge.
func SetQueueDepthGauge(depth int) {
	dvAuditQueueDepth.Set(float64(depth))
}
