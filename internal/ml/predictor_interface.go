// Package ml classifies light-curve feature vectors into transit classes.
// It covers the model artifact format (random forest or Gaussian naive
// Bayes with an optional standard scaler), a bundled deterministic default
// model used when no artifact is available, and the Predictor that turns a
// light curve into a prediction result.
//
// A loaded Model is immutable; one instance is shared by every request.
package ml

import (
	"context"

	"exotransit/internal/features"
	"exotransit/internal/lightcurve"
)

// PredictorInterface is what the HTTP layer needs from a predictor.
type PredictorInterface interface {
	// Predict classifies a light curve and derives its transit parameters.
	// Only lightcurve.ErrInvalidInput failures are expected.
	Predict(ctx context.Context, lc lightcurve.LightCurve) (Result, error)

	// Info describes the model backing the predictor.
	Info() ModelInfo
}

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	features.MetricsTracker
	MLPredictionsInc(label string)
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLPredictionScoresObserve(float64)
	MLFallbackUseInc()
}

// Classifier is a fitted model producing one probability per class, in the
// model's class order.
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
	NumFeatures() int
	NumClasses() int
}
