package ml

import (
	"context"
	"fmt"
	"time"

	"exotransit/internal/features"
	"exotransit/internal/lightcurve"

	"github.com/rs/zerolog/log"
)

// Result is the outcome of one prediction. A new value is built for every
// request and never shared.
type Result struct {
	Prediction         string             `json:"prediction"`
	Confidence         float64            `json:"confidence"`
	TransitPeriod      float64            `json:"transit_period"`
	TransitDepth       float64            `json:"transit_depth"`
	TransitDuration    float64            `json:"transit_duration"`
	ClassProbabilities map[string]float64 `json:"class_probabilities"`
	Features           map[string]float64 `json:"features,omitempty"`

	vector features.Vector
}

// Vector returns the feature vector the prediction was made from.
func (r Result) Vector() features.Vector {
	return r.vector
}

// Predictor runs extraction, classification and transit estimation over a
// light curve. The Model is injected and only read, so a single Predictor
// serves concurrent requests without locking.
type Predictor struct {
	model   *Model
	metrics MetricsInterface
}

// NewPredictor creates a predictor over model. A nil model selects the
// bundled default; metrics may be nil.
func NewPredictor(model *Model, metrics MetricsInterface) *Predictor {
	if model == nil {
		model = Default()
	}
	return &Predictor{model: model, metrics: metrics}
}

// Predict classifies lc. It fails when lc is empty, has mismatched series
// or holds non-finite values, and with ctx.Err() when ctx ends before
// extraction finishes; every other degeneracy is absorbed during feature
// extraction.
func (p *Predictor) Predict(ctx context.Context, lc lightcurve.LightCurve) (Result, error) {
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.MLLatencyObserve(time.Since(start).Seconds())
		}
	}()

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	if err := lc.Validate(); err != nil {
		return Result{}, err
	}

	var tracker features.MetricsTracker
	if p.metrics != nil {
		tracker = p.metrics
	}
	vec, err := features.ExtractContext(ctx, lc, tracker)
	if err != nil {
		log.Warn().Err(err).Int("points", lc.Len()).Msg("feature extraction abandoned")
		return Result{}, fmt.Errorf("extract features: %w", err)
	}

	label, probs, err := p.model.Classify(vec)
	if err != nil {
		if p.metrics != nil {
			p.metrics.MLFailuresInc()
		}
		log.Error().Err(err).Interface("features", vec.Map()).Msg("classification failed")
		return Result{}, fmt.Errorf("predict: %w", err)
	}

	transit := features.TransitFromVector(vec)
	confidence := probs[label]

	if p.metrics != nil {
		p.metrics.MLPredictionsInc(label)
		p.metrics.MLPredictionScoresObserve(confidence)
		if p.model.IsDefault() {
			p.metrics.MLFallbackUseInc()
		}
	}

	log.Debug().
		Int("points", lc.Len()).
		Str("prediction", label).
		Float64("confidence", confidence).
		Float64("period", transit.Period).
		Float64("depth", transit.Depth).
		Msg("prediction made")

	return Result{
		Prediction:         label,
		Confidence:         confidence,
		TransitPeriod:      transit.Period,
		TransitDepth:       transit.Depth,
		TransitDuration:    transit.DurationHours,
		ClassProbabilities: probs,
		Features:           vec.Map(),
		vector:             vec,
	}, nil
}

// Info describes the model backing the predictor.
func (p *Predictor) Info() ModelInfo {
	return p.model.Info()
}

// Model returns the predictor's model.
func (p *Predictor) Model() *Model {
	return p.model
}
