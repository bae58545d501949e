package ml

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"exotransit/internal/common"
	"exotransit/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forestArtifact(withScaler bool) Artifact {
	a := Artifact{
		Version:      "test-1",
		ModelType:    ModelTypeRandomForest,
		FeatureNames: features.Names(),
		Classes:      []string{common.LabelCandidate, common.LabelFalsePositive, common.LabelPlanet},
		RandomForest: &RandomForest{
			Trees: []DecisionTree{
				{Nodes: []TreeNode{
					{FeatureIdx: features.SNREstimate, Threshold: 10, LeftChild: 1, RightChild: 2},
					{IsLeaf: true, Value: []float64{2, 8, 0}},
					{IsLeaf: true, Value: []float64{0, 1, 9}},
				}},
				{Nodes: []TreeNode{
					{IsLeaf: true, Value: []float64{1, 1, 2}},
				}},
			},
		},
	}
	if withScaler {
		scale := make([]float64, features.Size)
		for i := range scale {
			scale[i] = 1
		}
		scale[features.SNREstimate] = 2
		a.Scaler = &StandardScaler{Mean: make([]float64, features.Size), Scale: scale}
	}
	return a
}

func writeArtifact(t *testing.T, a Artifact) string {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func sumProbs(p map[string]float64) float64 {
	var s float64
	for _, v := range p {
		s += v
	}
	return s
}

func TestDefaultModel(t *testing.T) {
	m := Default()
	require.NotNil(t, m)
	assert.True(t, m.IsDefault())

	info := m.Info()
	assert.Equal(t, ModelTypeGaussianNB, info.ModelType)
	assert.Equal(t, SourceDefault, info.Source)
	assert.False(t, info.ScalerAvailable)
	assert.ElementsMatch(t, ClassLabels(), info.Classes)
	assert.Equal(t, features.Names(), info.FeatureNames)
}

func TestModelInfo_TrainedAt(t *testing.T) {
	info := Default().Info()
	assert.Nil(t, info.TrainedAt)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "trained_at")

	trained := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := forestArtifact(false)
	a.TrainedAt = trained
	m, err := Load(writeArtifact(t, a))
	require.NoError(t, err)

	info = m.Info()
	require.NotNil(t, info.TrainedAt)
	assert.True(t, trained.Equal(*info.TrainedAt))

	data, err = json.Marshal(info)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"trained_at":"2024-03-01T12:00:00Z"`)
}

func TestDefaultModel_Deterministic(t *testing.T) {
	var v features.Vector
	v[features.FluxMean] = 1
	v[features.FluxStd] = 0.0006
	v[features.FluxMin] = 0.99
	v[features.FluxMax] = 1.001
	v[features.FluxRange] = 0.011
	v[features.FluxSkewness] = 0.1
	v[features.FluxKurtosis] = 2
	v[features.TransitDepthEstimate] = 0.01
	v[features.PeriodEstimate] = 5
	v[features.SNREstimate] = 14

	l1, p1, err := Default().Classify(v)
	require.NoError(t, err)
	l2, p2, err := Default().Classify(v)
	require.NoError(t, err)

	assert.Equal(t, l1, l2)
	assert.Equal(t, p1, p2)
	assert.InDelta(t, 1.0, sumProbs(p1), 1e-6)
	assert.Equal(t, common.LabelPlanet, l1)
}

func TestGaussianNB_UnderflowFallsBackToPriors(t *testing.T) {
	var v features.Vector
	for i := range v {
		v[i] = 1e200
	}
	label, probs, err := Default().Classify(v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sumProbs(probs), 1e-6)
	assert.Contains(t, ClassLabels(), label)
	for _, p := range probs {
		assert.False(t, math.IsNaN(p))
	}
}

func TestLoad_RandomForest(t *testing.T) {
	path := writeArtifact(t, forestArtifact(false))

	m, err := Load(path)
	require.NoError(t, err)
	assert.False(t, m.IsDefault())
	assert.Equal(t, SourceFile, m.Info().Source)
	assert.Equal(t, path, m.Info().Path)

	var v features.Vector
	v[features.SNREstimate] = 15 // right branch

	label, probs, err := m.Classify(v)
	require.NoError(t, err)
	// tree1 right leaf: [0, .1, .9], tree2: [.25, .25, .5]
	assert.Equal(t, common.LabelPlanet, label)
	assert.InDelta(t, 0.125, probs[common.LabelCandidate], 1e-12)
	assert.InDelta(t, 0.175, probs[common.LabelFalsePositive], 1e-12)
	assert.InDelta(t, 0.7, probs[common.LabelPlanet], 1e-12)
	assert.InDelta(t, 1.0, sumProbs(probs), 1e-9)
}

func TestLoad_ScalerApplied(t *testing.T) {
	m, err := Load(writeArtifact(t, forestArtifact(true)))
	require.NoError(t, err)
	assert.True(t, m.Info().ScalerAvailable)

	var v features.Vector
	v[features.SNREstimate] = 15 // scaled to 7.5, left branch

	label, probs, err := m.Classify(v)
	require.NoError(t, err)
	// tree1 left leaf: [.2, .8, 0], tree2: [.25, .25, .5]
	assert.Equal(t, common.LabelFalsePositive, label)
	assert.InDelta(t, 0.525, probs[common.LabelFalsePositive], 1e-12)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"unknown type", func(a *Artifact) { a.ModelType = "svm" }},
		{"missing classes", func(a *Artifact) { a.Classes = []string{common.LabelPlanet} }},
		{"unknown class", func(a *Artifact) { a.Classes[0] = "BROWN DWARF" }},
		{"duplicate class", func(a *Artifact) { a.Classes[1] = a.Classes[0] }},
		{"feature order", func(a *Artifact) {
			a.FeatureNames = features.Names()
			a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0]
		}},
		{"bad feature index", func(a *Artifact) { a.RandomForest.Trees[0].Nodes[0].FeatureIdx = 42 }},
		{"child cycle", func(a *Artifact) { a.RandomForest.Trees[0].Nodes[0].LeftChild = 0 }},
		{"leaf width", func(a *Artifact) { a.RandomForest.Trees[1].Nodes[0].Value = []float64{1} }},
		{"no trees", func(a *Artifact) { a.RandomForest.Trees = nil }},
		{"missing section", func(a *Artifact) { a.RandomForest = nil }},
		{"scaler width", func(a *Artifact) { a.Scaler = &StandardScaler{Mean: []float64{0}, Scale: []float64{1}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := forestArtifact(false)
			tt.mutate(&a)
			data, err := json.Marshal(a)
			require.NoError(t, err)

			_, err = Parse(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}

	_, err := Parse([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestLoadOrDefault(t *testing.T) {
	m, fromFile := LoadOrDefault(filepath.Join(t.TempDir(), "missing.json"))
	assert.False(t, fromFile)
	assert.True(t, m.IsDefault())

	m, fromFile = LoadOrDefault("")
	assert.False(t, fromFile)
	assert.True(t, m.IsDefault())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"model_type":"svm"}`), 0o600))
	m, fromFile = LoadOrDefault(bad)
	assert.False(t, fromFile)
	assert.True(t, m.IsDefault())

	m, fromFile = LoadOrDefault(writeArtifact(t, forestArtifact(false)))
	assert.True(t, fromFile)
	assert.Equal(t, ModelTypeRandomForest, m.Info().ModelType)
}

func TestNormalize(t *testing.T) {
	p := []float64{1, 3}
	normalize(p)
	assert.Equal(t, []float64{0.25, 0.75}, p)

	p = []float64{0, 0, 0}
	normalize(p)
	assert.InDelta(t, 1.0/3, p[0], 1e-12)

	p = []float64{math.NaN(), 1}
	normalize(p)
	assert.Equal(t, []float64{0.5, 0.5}, p)
}

func TestStandardScaler_ZeroScale(t *testing.T) {
	s := &StandardScaler{Mean: []float64{1, 2}, Scale: []float64{0, 4}}
	assert.Equal(t, []float64{2, 0.5}, s.Transform([]float64{3, 4}))
}
