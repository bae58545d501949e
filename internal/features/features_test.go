package features

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"exotransit/internal/lightcurve"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMetricsTracker records degenerate notifications.
type MockMetricsTracker struct {
	Degenerate map[string]int
}

func (m *MockMetricsTracker) FeatureDegenerateInc(feature string) {
	if m.Degenerate == nil {
		m.Degenerate = make(map[string]int)
	}
	m.Degenerate[feature]++
}

// periodicDip builds a densely sampled series with a box-shaped dip of the
// given depth every period time units (dt = 0.02).
func periodicDip(n int, depth float64, noise float64, seed int64) lightcurve.LightCurve {
	const dt = 0.02
	const samplesPerPeriod = 250 // period 5.0
	rng := rand.New(rand.NewSource(seed))

	tm := make([]float64, n)
	fl := make([]float64, n)
	for i := range tm {
		tm[i] = float64(i) * dt
		fl[i] = 1.0
		if phase := i % samplesPerPeriod; phase >= 123 && phase <= 127 {
			fl[i] -= depth
		}
		if noise > 0 {
			fl[i] += rng.NormFloat64() * noise
		}
	}
	lc, err := lightcurve.New(tm, fl)
	if err != nil {
		panic(err)
	}
	return lc
}

func TestExtract_ConstantFlux(t *testing.T) {
	lc, err := lightcurve.FromFlux([]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)

	tracker := &MockMetricsTracker{}
	v := ExtractWithMetrics(lc, tracker)

	assert.Equal(t, 1.0, v[FluxMean])
	assert.Equal(t, 0.0, v[FluxStd])
	assert.Equal(t, 1.0, v[FluxMin])
	assert.Equal(t, 1.0, v[FluxMax])
	assert.Equal(t, 0.0, v[FluxRange])
	assert.Equal(t, 0.0, v[FluxSkewness])
	assert.Equal(t, 0.0, v[FluxKurtosis])
	assert.Equal(t, 0.0, v[TransitDepthEstimate])
	assert.Equal(t, DefaultPeriod, v[PeriodEstimate])
	assert.Equal(t, 0.0, v[SNREstimate])

	assert.Equal(t, 1, tracker.Degenerate["flux_std"])
	assert.Equal(t, 1, tracker.Degenerate["period_estimate"])
}

func TestExtract_ZeroVarianceAlwaysZeroMoments(t *testing.T) {
	for _, level := range []float64{0, 1, -3.5, 1e6} {
		flux := make([]float64, 40)
		for i := range flux {
			flux[i] = level
		}
		lc, err := lightcurve.FromFlux(flux)
		require.NoError(t, err)

		v := Extract(lc)
		assert.Equal(t, 0.0, v[FluxSkewness], "level %v", level)
		assert.Equal(t, 0.0, v[FluxKurtosis], "level %v", level)
		assert.Equal(t, 0.0, v[SNREstimate], "level %v", level)
		assert.GreaterOrEqual(t, v[TransitDepthEstimate], 0.0)
	}
}

func TestMoments(t *testing.T) {
	x := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := computeMoments(x)
	assert.InDelta(t, 5.0, m.mean, 1e-12)
	assert.InDelta(t, 2.0, m.std, 1e-12)
	assert.Equal(t, 2.0, m.min)
	assert.Equal(t, 9.0, m.max)

	// symmetric data has zero skew
	assert.InDelta(t, 0.0, Skewness([]float64{1, 2, 3, 4, 5}), 1e-12)
	// two-point distribution: kurtosis 1 - 3
	assert.InDelta(t, -2.0, Kurtosis([]float64{-1, 1, -1, 1}), 1e-12)
	// right tail gives positive skew
	assert.Greater(t, Skewness([]float64{0, 0, 0, 0, 10}), 0.0)
}

func TestPercentile(t *testing.T) {
	x := []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 1.0, Percentile(x, 0))
	assert.Equal(t, 5.0, Percentile(x, 100))
	assert.InDelta(t, 3.0, Percentile(x, 50), 1e-12)
	// pos = 0.9 * 4 = 3.6 -> 4 + 0.6*(5-4)
	assert.InDelta(t, 4.6, Percentile(x, 90), 1e-12)
	assert.Equal(t, 7.0, Percentile([]float64{7}, 90))
	assert.Equal(t, 0.0, Percentile(nil, 90))
}

func TestTransitDepth(t *testing.T) {
	tests := []struct {
		name string
		flux []float64
		want float64
	}{
		{"flat", []float64{1, 1, 1, 1}, 0},
		{"zero baseline", []float64{0, 0, 0, 0}, 0},
		{"negative baseline", []float64{-1, -1, -2, -1}, 0},
		{"single dip", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0.99}, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TransitDepth(tt.flux)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestTransitDepth_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(60)
		flux := make([]float64, n)
		for i := range flux {
			flux[i] = rng.NormFloat64() * 10
		}
		assert.GreaterOrEqual(t, TransitDepth(flux), 0.0)
	}
}

func TestEstimatePeriod_PeriodicDip(t *testing.T) {
	lc := periodicDip(2500, 0.01, 0, 1)
	p := EstimatePeriod(lc.Time, lc.Flux)
	assert.InDelta(t, 5.0, p, 0.1)
	assert.NotEqual(t, DefaultPeriod, p)

	noisy := periodicDip(2500, 0.01, 0.0005, 42)
	p = EstimatePeriod(noisy.Time, noisy.Flux)
	assert.InDelta(t, 5.0, p, 0.1)
}

func TestEstimatePeriod_Degenerate(t *testing.T) {
	// ten points produce only ten lags, below the search minimum
	short := []float64{1, 0.9, 1, 0.9, 1, 0.9, 1, 0.9, 1, 0.9}
	assert.Equal(t, DefaultPeriod, EstimatePeriod(lightcurve.IndexTime(10), short))

	assert.Equal(t, DefaultPeriod, EstimatePeriod(nil, nil))
	assert.Equal(t, DefaultPeriod, EstimatePeriod([]float64{0, 1}, []float64{1}))

	// peak at the final lag is out of range
	flux := make([]float64, 12)
	for i := range flux {
		flux[i] = 1
	}
	flux[0], flux[11] = 0, 0
	assert.Equal(t, DefaultPeriod, EstimatePeriod(lightcurve.IndexTime(12), flux))
}

func TestEstimatePeriod_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 100; trial++ {
		n := 5 + rng.Intn(300)
		tm := make([]float64, n)
		fl := make([]float64, n)
		step := math.Pow(10, rng.Float64()*3-2) // 0.01 .. 10
		for i := range tm {
			tm[i] = float64(i) * step
			fl[i] = 1 + rng.NormFloat64()*0.01
		}
		p := EstimatePeriod(tm, fl)
		if p != DefaultPeriod {
			assert.GreaterOrEqual(t, p, MinPeriod)
			assert.LessOrEqual(t, p, MaxPeriod)
		}
	}
}

func TestExtractContext_Canceled(t *testing.T) {
	lc := periodicDip(2000, 0.01, 0.001, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := &MockMetricsTracker{}
	_, err := ExtractContext(ctx, lc, tracker)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, tracker.Degenerate[names[PeriodEstimate]])
}

func TestExtractContext_MatchesExtract(t *testing.T) {
	lc := periodicDip(2000, 0.01, 0.001, 4)

	v, err := ExtractContext(context.Background(), lc, nil)
	require.NoError(t, err)
	assert.Equal(t, Extract(lc), v)
}

func TestSNR(t *testing.T) {
	assert.Equal(t, 0.0, SNR([]float64{3, 3, 3}))
	// mean 0, min -1, std 1
	assert.InDelta(t, 1.0, SNR([]float64{-1, 1, -1, 1}), 1e-12)
}

func TestTransitDuration(t *testing.T) {
	assert.InDelta(t, 2.0, TransitDuration(0, 0), 1e-12)
	assert.InDelta(t, (2+0.5*5)*(1+10*0.01), TransitDuration(5, 0.01), 1e-12)
	assert.Equal(t, 12.0, TransitDuration(50, 0.5))

	for _, p := range []float64{MinPeriod, 1, 3, 10, MaxPeriod} {
		for _, d := range []float64{0, 0.001, 0.1, 1} {
			got := TransitDuration(p, d)
			assert.LessOrEqual(t, got, 12.0)
			assert.GreaterOrEqual(t, got, 2.0)
		}
	}
}

func TestEstimateTransit_ConsistentWithExtract(t *testing.T) {
	lc := periodicDip(1000, 0.02, 0.001, 9)
	v := Extract(lc)
	tp := EstimateTransit(lc)

	assert.Equal(t, v[PeriodEstimate], tp.Period)
	assert.Equal(t, v[TransitDepthEstimate], tp.Depth)
	assert.Equal(t, TransitDuration(tp.Period, tp.Depth), tp.DurationHours)
}

func TestExtract_AllFinite(t *testing.T) {
	lc, err := lightcurve.FromFlux([]float64{1e300, -1e300, 1e300, 0, 5, 6, 7, 8, 9, 10, 11, 12})
	require.NoError(t, err)
	v := Extract(lc)
	for i, f := range v {
		assert.False(t, math.IsNaN(f) || math.IsInf(f, 0), "feature %s not finite", Names()[i])
	}
}

func TestNames(t *testing.T) {
	n := Names()
	require.Len(t, n, Size)
	assert.Equal(t, "flux_mean", n[0])
	assert.Equal(t, "snr_estimate", n[Size-1])

	n[0] = "mutated"
	assert.Equal(t, "flux_mean", Names()[0])
}
