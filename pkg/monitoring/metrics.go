package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lims_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lims_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Domain metrics
	ordersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lims_orders_created_total",
			Help: "Total number of lab orders placed",
		},
	)

	resultsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lims_results_saved_total",
			Help: "Total number of result sets saved",
		},
	)

	archiveOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lims_archive_operations_total",
			Help: "Total number of archive operations",
		},
		[]string{"operation", "status"},
	)

	decryptFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lims_decrypt_failures_total",
			Help: "Total number of PII column decryption failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		ordersCreatedTotal,
		resultsSavedTotal,
		archiveOperationsTotal,
		decryptFailuresTotal,
	)
}

// Handler returns the prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordOrderCreated counts a placed order
func RecordOrderCreated() {
	ordersCreatedTotal.Inc()
}

// RecordResultSaved counts a saved result set
func RecordResultSaved() {
	resultsSavedTotal.Inc()
}

// RecordArchiveOperation counts an archive/restore/purge outcome
func RecordArchiveOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	archiveOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDecryptFailure counts a PII decryption failure
func RecordDecryptFailure() {
	decryptFailuresTotal.Inc()
}
