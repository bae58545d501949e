package storage

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(tempDir, dbFileName))
	assert.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestStore_CloseTwice(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestStore_StarRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := StarRecord{
		StarID:    "Kepler-10",
		Source:    "NASA Exoplanet Archive",
		Info:      map[string]any{"pl_name": "Kepler-10 b"},
		Time:      []float64{0, 0.02, 0.04},
		Flux:      []float64{1, 0.99, 1},
		FetchedAt: time.Now(),
	}
	require.NoError(t, store.PutStar(rec))

	got, err := store.GetStar("Kepler-10", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, rec.Flux, got.Flux)
	assert.Equal(t, rec.Source, got.Source)
	assert.Equal(t, "Kepler-10 b", got.Info["pl_name"])

	_, err = store.GetStar("Kepler-11", time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_StarExpiry(t *testing.T) {
	store := newTestStore(t)

	old := StarRecord{StarID: "old", Flux: []float64{1}, Time: []float64{0}, FetchedAt: time.Now().Add(-48 * time.Hour)}
	fresh := StarRecord{StarID: "fresh", Flux: []float64{1}, Time: []float64{0}, FetchedAt: time.Now()}
	require.NoError(t, store.PutStar(old))
	require.NoError(t, store.PutStar(fresh))

	_, err := store.GetStar("old", 24*time.Hour)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetStar("old", 0)
	assert.NoError(t, err, "zero max age disables expiry")

	removed, err := store.PruneStars(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetStar("old", 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetStar("fresh", 0)
	assert.NoError(t, err)
}

func sampleRecord(source string, ts time.Time, label string) FeatureRecord {
	return FeatureRecord{
		Source:     source,
		Timestamp:  ts,
		Names:      []string{"flux_mean", "flux_std"},
		Values:     []float64{1.0, 0.0005},
		Prediction: label,
		Confidence: 0.8,
	}
}

func TestStore_FeaturesInRange(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.StoreFeatures(sampleRecord("upload", base.Add(time.Duration(i)*time.Minute), "PLANET")))
	}
	require.NoError(t, store.StoreFeatures(sampleRecord("uploadx", base.Add(2*time.Minute), "CANDIDATE")))

	got, err := store.GetFeaturesInRange("upload", base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Timestamp.Equal(base.Add(time.Minute)))
	for _, rec := range got {
		assert.Equal(t, "upload", rec.Source)
	}
}

func TestStore_StoreFeaturesRejectsMismatch(t *testing.T) {
	store := newTestStore(t)
	rec := sampleRecord("predict", time.Now(), "PLANET")
	rec.Values = rec.Values[:1]
	assert.Error(t, store.StoreFeatures(rec))
}

func TestStore_ExportFeaturesToCSV(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.StoreFeatures(sampleRecord("predict", base, "PLANET")))
	require.NoError(t, store.StoreFeatures(sampleRecord("predict", base.Add(time.Second), "FALSE POSITIVE")))
	odd := sampleRecord("predict", base.Add(2*time.Second), "CANDIDATE")
	odd.Names = []string{"other", "names"}
	require.NoError(t, store.StoreFeatures(odd))

	path := filepath.Join(t.TempDir(), "features.csv")
	n, err := store.ExportFeaturesToCSV(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"source", "timestamp", "flux_mean", "flux_std", "prediction", "confidence"}, rows[0])
	assert.Equal(t, "FALSE POSITIVE", rows[2][4])
}

func TestStore_ExportEmpty(t *testing.T) {
	store := newTestStore(t)
	var buf bytes.Buffer
	n, err := store.WriteFeaturesCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, buf.String())
}

func TestWriteRecordsCSV_SkipsMismatchedNames(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []FeatureRecord{
		{Source: "upload", Timestamp: ts, Names: []string{"a", "b"}, Values: []float64{1, 2}, Prediction: "PLANET", Confidence: 0.5},
		{Source: "upload", Timestamp: ts, Names: []string{"a"}, Values: []float64{1}, Prediction: "PLANET"},
		{Source: "predict", Timestamp: ts, Names: []string{"a", "b"}, Values: []float64{0.25, 3}, Prediction: "CANDIDATE"},
	}

	var buf bytes.Buffer
	n, err := WriteRecordsCSV(&buf, records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"predict", "2024-01-02T03:04:05Z", "0.25", "3", "CANDIDATE", "0.000000"}, rows[2])
}
