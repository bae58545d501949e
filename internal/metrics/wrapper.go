package metrics

import (
	"strconv"
	"time"
)

// MetricsWrapper adapts Metrics to the narrow interfaces consumed by the
// predictor, the archive client and the HTTP layer.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc(label string) {
	w.m.MLPredictions.WithLabelValues(label).Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
	w.m.ErrorsTotal.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(seconds float64) {
	w.m.MLLatency.Observe(seconds)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(score float64) {
	w.m.MLPredictionScores.Observe(score)
}

func (w *MetricsWrapper) MLFallbackUseInc() {
	w.m.MLFallbackUse.Inc()
}

func (w *MetricsWrapper) FeatureDegenerateInc(feature string) {
	w.m.FeatureDegenerate.WithLabelValues(feature).Inc()
}

func (w *MetricsWrapper) ArchiveRequestInc() {
	w.m.ArchiveRequests.Inc()
}

func (w *MetricsWrapper) ArchiveFailureInc() {
	w.m.ArchiveFailures.Inc()
}

func (w *MetricsWrapper) ArchiveCacheHitInc() {
	w.m.ArchiveCacheHits.Inc()
}

// ObserveHTTP records one served request.
func (w *MetricsWrapper) ObserveHTTP(route string, code int, elapsed time.Duration) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
	if code >= 500 {
		w.m.ErrorsTotal.Inc()
	}
}
