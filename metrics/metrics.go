// Package metrics provides Prometheus metrics collection for the dermacare API.
// It exports HTTP request metrics, rate limiter occupancy, outbound Gemini call
// metrics and upload statistics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - gemini_requests_total: Counter with kind and outcome labels
//   - gemini_request_duration_seconds: Histogram with kind label
//   - upload_bytes: Histogram of accepted upload sizes
//   - uploads_swept_total: Counter of stale upload files removed by the sweeper
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcomes recorded for Gemini calls
const (
	OutcomeSuccess     = "success"
	OutcomeEmpty       = "empty"
	OutcomeStatusError = "status_error"
	OutcomeError       = "error"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (client IPs currently tracked)",
		},
	)

	GeminiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemini_requests_total",
			Help: "Total calls to the Gemini generateContent endpoint",
		},
		[]string{"kind", "outcome"},
	)

	GeminiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gemini_request_duration_seconds",
			Help:    "Gemini generateContent latency",
			Buckets: []float64{.25, .5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"kind"},
	)

	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_bytes",
			Help:    "Size of accepted image uploads",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 7), // 16KiB .. 64MiB
		},
	)

	UploadsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "uploads_swept_total",
			Help: "Stale upload files removed by the background sweeper",
		},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(GeminiRequestsTotal)
	prometheus.MustRegister(GeminiRequestDuration)
	prometheus.MustRegister(UploadBytes)
	prometheus.MustRegister(UploadsSweptTotal)
}
