// Package metrics provides Prometheus metrics collection for the exoplanet
// classification service. It covers predictions, feature extraction
// degeneracies, archive lookups and HTTP traffic, all exposed on the
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Classification metrics
	MLPredictions      *prometheus.CounterVec // Predictions made, by label
	MLFailures         prometheus.Counter     // Classifier invocations that failed
	MLLatency          prometheus.Histogram   // End-to-end prediction latency in seconds
	MLPredictionScores prometheus.Histogram   // Distribution of winning-class confidence
	MLFallbackUse      prometheus.Counter     // Predictions served by the bundled default model

	// Feature metrics
	FeatureDegenerate *prometheus.CounterVec // Degenerate computations absorbed, by feature

	// Archive metrics
	ArchiveRequests  prometheus.Counter // Star lookups requested
	ArchiveFailures  prometheus.Counter // Archive queries that fell back to mock data
	ArchiveCacheHits prometheus.Counter // Lookups served from cache

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration *prometheus.HistogramVec // Request duration by route

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of predictions made, by predicted label",
		}, []string{"label"}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of classifier failures",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_fallback_use_total",
			Help: "Total number of predictions served by the default model",
		}),
		FeatureDegenerate: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feature_degenerate_total",
			Help: "Degenerate feature computations replaced by safe defaults",
		}, []string{"feature"}),
		ArchiveRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Total number of star lookups",
		}),
		ArchiveFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "archive_failures_total",
			Help: "Archive lookups that fell back to generated data",
		}),
		ArchiveCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "archive_cache_hits_total",
			Help: "Star lookups served from cache",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// GetErrorRate returns server errors over total HTTP requests, or 0 when
// nothing has been served yet.
func (m *Metrics) GetErrorRate(gatherer prometheus.Gatherer) float64 {
	families, err := gatherer.Gather()
	if err != nil {
		return 0
	}

	var total, errs float64
	for _, mf := range families {
		switch mf.GetName() {
		case "http_requests_total":
			for _, metric := range mf.GetMetric() {
				total += metric.GetCounter().GetValue()
			}
		case "errors_total":
			for _, metric := range mf.GetMetric() {
				errs += metric.GetCounter().GetValue()
			}
		}
	}

	if total == 0 {
		return 0
	}
	return errs / total
}
