package ml

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"exotransit/internal/features"

	"github.com/rs/zerolog/log"
)

//go:embed default_model.json
var defaultModelJSON []byte

// Artifact is the on-disk JSON form of a Model.
type Artifact struct {
	Version      string          `json:"version"`
	ModelType    string          `json:"model_type"`
	TrainedAt    time.Time       `json:"trained_at,omitempty"`
	FeatureNames []string        `json:"feature_names,omitempty"`
	Classes      []string        `json:"classes"`
	Scaler       *StandardScaler `json:"scaler,omitempty"`
	RandomForest *RandomForest   `json:"random_forest,omitempty"`
	GaussianNB   *GaussianNB     `json:"gaussian_nb,omitempty"`
}

// Load reads a model artifact from path.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	m.source = SourceFile
	m.path = path
	return m, nil
}

// Parse builds a Model from artifact JSON.
func Parse(data []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return a.build()
}

func (a *Artifact) build() (*Model, error) {
	if err := validateClasses(a.Classes); err != nil {
		return nil, err
	}
	if len(a.FeatureNames) > 0 {
		want := features.Names()
		if len(a.FeatureNames) != len(want) {
			return nil, fmt.Errorf("%w: artifact has %d features, want %d", ErrInvalidModel, len(a.FeatureNames), len(want))
		}
		for i := range want {
			if a.FeatureNames[i] != want[i] {
				return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidModel, i, a.FeatureNames[i], want[i])
			}
		}
	}

	nFeatures, nClasses := features.Size, len(a.Classes)

	var clf Classifier
	switch a.ModelType {
	case ModelTypeRandomForest:
		if a.RandomForest == nil {
			return nil, fmt.Errorf("%w: missing random_forest section", ErrInvalidModel)
		}
		if err := a.RandomForest.init(nFeatures, nClasses); err != nil {
			return nil, err
		}
		clf = a.RandomForest
	case ModelTypeGaussianNB:
		if a.GaussianNB == nil {
			return nil, fmt.Errorf("%w: missing gaussian_nb section", ErrInvalidModel)
		}
		if err := a.GaussianNB.init(nFeatures, nClasses); err != nil {
			return nil, err
		}
		clf = a.GaussianNB
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrInvalidModel, a.ModelType)
	}

	if a.Scaler != nil {
		if err := a.Scaler.validate(nFeatures); err != nil {
			return nil, err
		}
	}

	version := a.Version
	if version == "" {
		version = "unknown"
	}
	return &Model{
		classifier: clf,
		scaler:     a.Scaler,
		classes:    append([]string(nil), a.Classes...),
		modelType:  a.ModelType,
		version:    version,
		trainedAt:  a.TrainedAt,
	}, nil
}

func validateClasses(classes []string) error {
	allowed := make(map[string]bool)
	for _, c := range ClassLabels() {
		allowed[c] = true
	}
	if len(classes) != len(allowed) {
		return fmt.Errorf("%w: expected classes %v, got %v", ErrInvalidModel, ClassLabels(), classes)
	}
	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		if !allowed[c] {
			return fmt.Errorf("%w: unknown class %q", ErrInvalidModel, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate class %q", ErrInvalidModel, c)
		}
		seen[c] = true
	}
	return nil
}

// Default returns the bundled Gaussian naive Bayes model. It is built from a
// fixed fixture, so every process gets identical predictions.
func Default() *Model {
	m, err := Parse(defaultModelJSON)
	if err != nil {
		panic(fmt.Sprintf("bundled default model is invalid: %v", err))
	}
	m.source = SourceDefault
	return m
}

// LoadOrDefault loads the artifact at path, falling back to Default when it
// is missing or unreadable. The boolean reports whether the file was used.
func LoadOrDefault(path string) (*Model, bool) {
	if path == "" {
		log.Warn().Msg("no model path configured, using bundled default model")
		return Default(), false
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn().Str("model_path", path).Msg("model file not found, using bundled default model")
		return Default(), false
	}

	m, err := Load(path)
	if err != nil {
		log.Error().Err(err).Str("model_path", path).Msg("failed to load model, using bundled default model")
		return Default(), false
	}

	log.Info().
		Str("model_path", path).
		Str("model_type", m.modelType).
		Str("version", m.version).
		Bool("scaler", m.scaler != nil).
		Msg("model loaded successfully")
	return m, true
}
