package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpanel_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcpanel_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	repositoryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpanel_repository_operations_total",
		Help: "Repository operations by entity, operation and result",
	}, []string{"entity", "op", "result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpanel_cache_lookups_total",
		Help: "Cache lookups by cache name and result",
	}, []string{"cache", "result"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gcpanel_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})

	auditQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gcpanel_audit_queue_depth",
		Help: "Audit entries waiting to be flushed",
	})
)

// Repository operation results.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveRepositoryOp counts one repository call.
func ObserveRepositoryOp(entity, op, result string) {
	repositoryOperations.WithLabelValues(entity, op, result).Inc()
}

// ObserveCacheLookup counts a hit or miss on the named cache.
func ObserveCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveLogin counts a login attempt.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// SetAuditQueueDepth sets the pending audit entry gauge.
func SetAuditQueueDepth(n int) {
	auditQueueDepth.Set(float64(n))
}
