package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"exotransit/internal/common"
	"exotransit/internal/features"
)

// ErrInvalidModel is returned when a model artifact is malformed.
var ErrInvalidModel = errors.New("invalid model artifact")

// Model types understood by the artifact loader.
const (
	ModelTypeRandomForest = "random_forest"
	ModelTypeGaussianNB   = "gaussian_nb"
)

// Model sources.
const (
	SourceFile    = "file"
	SourceDefault = "default"
)

// ClassLabels is the closed set of classes every model must predict over.
func ClassLabels() []string {
	return []string{common.LabelPlanet, common.LabelCandidate, common.LabelFalsePositive}
}

// Model bundles a fitted classifier, its optional scaler and its ordered
// class labels. It is never mutated after construction and is safe to share
// across goroutines.
type Model struct {
	classifier Classifier
	scaler     *StandardScaler
	classes    []string
	modelType  string
	version    string
	source     string
	path       string
	trainedAt  time.Time
}

// ModelInfo describes a loaded model.
type ModelInfo struct {
	ModelType       string     `json:"model_type"`
	FeatureNames    []string   `json:"feature_names"`
	Classes         []string   `json:"classes"`
	ScalerAvailable bool       `json:"scaler_available"`
	Version         string     `json:"version"`
	Source          string     `json:"source"`
	Path            string     `json:"path,omitempty"`
	TrainedAt       *time.Time `json:"trained_at,omitempty"`
}

// Classify scales vec when a scaler is present and returns the most likely
// label together with a probability for every class. Probabilities sum to 1.
func (m *Model) Classify(vec features.Vector) (string, map[string]float64, error) {
	x := vec.Slice()
	if m.scaler != nil {
		x = m.scaler.Transform(x)
	}

	proba, err := m.classifier.PredictProba(x)
	if err != nil {
		return "", nil, fmt.Errorf("classify: %w", err)
	}
	if len(proba) != len(m.classes) {
		return "", nil, fmt.Errorf("classify: got %d probabilities for %d classes", len(proba), len(m.classes))
	}
	normalize(proba)

	best := 0
	for i := 1; i < len(proba); i++ {
		if proba[i] > proba[best] {
			best = i
		}
	}

	probs := make(map[string]float64, len(m.classes))
	for i, c := range m.classes {
		probs[c] = proba[i]
	}
	return m.classes[best], probs, nil
}

// IsDefault reports whether this is the bundled fallback model.
func (m *Model) IsDefault() bool {
	return m.source == SourceDefault
}

// Classes returns the model's class order.
func (m *Model) Classes() []string {
	return append([]string(nil), m.classes...)
}

// Info describes the model.
func (m *Model) Info() ModelInfo {
	info := ModelInfo{
		ModelType:       m.modelType,
		FeatureNames:    features.Names(),
		Classes:         m.Classes(),
		ScalerAvailable: m.scaler != nil,
		Version:         m.version,
		Source:          m.source,
		Path:            m.path,
	}
	if !m.trainedAt.IsZero() {
		t := m.trainedAt
		info.TrainedAt = &t
	}
	return info
}

// normalize rescales p in place to sum to 1. Degenerate input (negative,
// non-finite or all-zero) becomes the uniform distribution.
func normalize(p []float64) {
	var sum float64
	for _, v := range p {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			sum = 0
			break
		}
		sum += v
	}
	if sum == 0 {
		for i := range p {
			p[i] = 1 / float64(len(p))
		}
		return
	}
	for i := range p {
		p[i] /= sum
	}
}
