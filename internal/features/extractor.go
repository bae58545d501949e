// Package features computes the statistical and transit-specific
// descriptors of a light curve: population moments, an autocorrelation
// period estimate, transit depth and a signal-to-noise estimate. Every
// computation absorbs degenerate input (zero variance, zero baseline, short
// series) with a safe default instead of failing.
package features

import (
	"context"
	"math"

	"exotransit/internal/lightcurve"
)

// Size is the number of features in a Vector.
const Size = 10

// Feature indexes into a Vector. The order is part of the contract with
// trained classifiers and must not change.
const (
	FluxMean = iota
	FluxStd
	FluxMin
	FluxMax
	FluxRange
	FluxSkewness
	FluxKurtosis
	TransitDepthEstimate
	PeriodEstimate
	SNREstimate
)

var names = [Size]string{
	"flux_mean", "flux_std", "flux_min", "flux_max", "flux_range",
	"flux_skew", "flux_kurtosis", "transit_depth_estimate",
	"period_estimate", "snr_estimate",
}

// Vector is the fixed-order feature vector.
type Vector [Size]float64

// Names returns the feature names in vector order.
func Names() []string {
	out := make([]string, Size)
	copy(out, names[:])
	return out
}

// Slice returns the vector as a fresh slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Size)
	copy(out, v[:])
	return out
}

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, Size)
	for i, n := range names {
		out[n] = v[i]
	}
	return out
}

// MetricsTracker receives notice of degenerate computations that were
// absorbed with a default value.
type MetricsTracker interface {
	FeatureDegenerateInc(feature string)
}

// Extract computes the feature vector of lc.
func Extract(lc lightcurve.LightCurve) Vector {
	return ExtractWithMetrics(lc, nil)
}

// ExtractWithMetrics computes the feature vector of lc and reports each
// degenerate sub-computation to m, which may be nil.
func ExtractWithMetrics(lc lightcurve.LightCurve, m MetricsTracker) Vector {
	v, _ := ExtractContext(context.Background(), lc, m)
	return v
}

// ExtractContext is ExtractWithMetrics bounded by ctx. It returns ctx.Err()
// when ctx is done before the period search completes.
func ExtractContext(ctx context.Context, lc lightcurve.LightCurve, m MetricsTracker) (Vector, error) {
	report := func(name string) {
		if m != nil {
			m.FeatureDegenerateInc(name)
		}
	}

	flux := lc.Flux
	mo := computeMoments(flux)

	var v Vector
	v[FluxMean] = mo.mean
	v[FluxStd] = mo.std
	v[FluxMin] = mo.min
	v[FluxMax] = mo.max
	v[FluxRange] = mo.max - mo.min

	if mo.std == 0 {
		report(names[FluxStd])
	}
	v[FluxSkewness] = standardizedMoment(flux, mo.mean, mo.std, 3)
	if mo.std != 0 {
		v[FluxKurtosis] = standardizedMoment(flux, mo.mean, mo.std, 4) - 3
	}

	depth, degenerate := transitDepth(flux)
	if degenerate {
		report(names[TransitDepthEstimate])
	}
	v[TransitDepthEstimate] = depth

	period, degenerate, err := estimatePeriod(ctx, lc.Time, flux)
	if err != nil {
		return Vector{}, err
	}
	if degenerate {
		report(names[PeriodEstimate])
	}
	v[PeriodEstimate] = period

	s, _ := snr(flux)
	v[SNREstimate] = s

	for i := range v {
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			report(names[i])
			v[i] = 0
		}
	}
	return v, nil
}
