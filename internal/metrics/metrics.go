package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afya_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AnalyzeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_analyze_requests_total",
			Help: "Remote advisor requests by outcome and language",
		},
		[]string{"outcome", "language"},
	)

	EmergencyDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_emergency_detections_total",
			Help: "Requests whose text matched an emergency phrase",
		},
		[]string{"language"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_provider_requests_total",
			Help: "Calls to the text-generation provider by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "afya_provider_request_duration_seconds",
			Help:    "Duration of provider calls including retries",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	ScoreRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_score_requests_total",
			Help: "Local scorer requests by outcome",
		},
		[]string{"outcome"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afya_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
