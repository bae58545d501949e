package features

import (
	"context"
	"math"

	"exotransit/internal/lightcurve"
)

const (
	// PeriodLagSkip is the first autocorrelation lag searched for a peak;
	// lag 0 and its immediate neighbours always dominate.
	PeriodLagSkip = 5
	// DefaultPeriod is reported whenever the autocorrelation search is degenerate.
	DefaultPeriod = 3.0
	MinPeriod     = 0.5
	MaxPeriod     = 50.0

	// minAutocorrLags is the autocorrelation length the peak search requires, exclusive.
	minAutocorrLags = 10
	baselinePercent = 90.0
	maxDurationHrs  = 12.0
)

// TransitParams are the human-facing transit parameters reported with a prediction.
type TransitParams struct {
	Period        float64 `json:"transit_period"`
	Depth         float64 `json:"transit_depth"`
	DurationHours float64 `json:"transit_duration"`
}

// TransitDepth estimates the fractional depth of the deepest dip against a
// baseline taken as the 90th percentile of flux. Never negative.
func TransitDepth(flux []float64) float64 {
	depth, _ := transitDepth(flux)
	return depth
}

// transitDepth also reports whether a safe default was substituted.
func transitDepth(flux []float64) (float64, bool) {
	if len(flux) == 0 {
		return 0, true
	}
	baseline := Percentile(flux, baselinePercent)
	if baseline == 0 {
		return 0, true
	}
	m := computeMoments(flux)
	depth := (baseline - m.min) / baseline
	if math.IsNaN(depth) || math.IsInf(depth, 0) {
		return 0, true
	}
	return math.Max(0, depth), false
}

// EstimatePeriod estimates the orbital period from the highest
// autocorrelation peak at lag PeriodLagSkip or later, mapped onto the time
// axis and clamped to [MinPeriod, MaxPeriod]. DefaultPeriod is returned
// when the search is degenerate.
func EstimatePeriod(time, flux []float64) float64 {
	p, _, _ := estimatePeriod(context.Background(), time, flux)
	return p
}

// estimatePeriod only fails when ctx is done during the autocorrelation.
func estimatePeriod(ctx context.Context, time, flux []float64) (float64, bool, error) {
	if len(flux) == 0 || len(time) != len(flux) {
		return DefaultPeriod, true, nil
	}

	m := computeMoments(flux)
	detrended := make([]float64, len(flux))
	for i, v := range flux {
		detrended[i] = v - m.mean
	}

	ac, err := autocorrelation(ctx, detrended)
	if err != nil {
		return 0, false, err
	}
	if len(ac) <= minAutocorrLags {
		return DefaultPeriod, true, nil
	}

	peak := PeriodLagSkip
	for k := PeriodLagSkip + 1; k < len(ac); k++ {
		if ac[k] > ac[peak] {
			peak = k
		}
	}
	if math.IsNaN(ac[peak]) || peak >= len(time)-1 {
		return DefaultPeriod, true, nil
	}

	period := time[peak] - time[0]
	if math.IsNaN(period) || math.IsInf(period, 0) {
		return DefaultPeriod, true, nil
	}
	return math.Max(MinPeriod, math.Min(MaxPeriod, period)), false, nil
}

// SNR is |mean - min| / std, or 0 when the series has no variance.
func SNR(flux []float64) float64 {
	s, _ := snr(flux)
	return s
}

func snr(flux []float64) (float64, bool) {
	m := computeMoments(flux)
	if m.std == 0 {
		return 0, true
	}
	return finiteOr(math.Abs(m.mean-m.min)/m.std, 0), false
}

// TransitDuration is an empirical duration in hours:
// min(12, (2 + 0.5*period) * (1 + 10*depth)).
func TransitDuration(period, depth float64) float64 {
	base := 2.0 + period*0.5
	depthFactor := 1.0 + depth*10
	return math.Min(maxDurationHrs, base*depthFactor)
}

// TransitFromVector reuses the period and depth already computed for v.
func TransitFromVector(v Vector) TransitParams {
	return TransitParams{
		Period:        v[PeriodEstimate],
		Depth:         v[TransitDepthEstimate],
		DurationHours: TransitDuration(v[PeriodEstimate], v[TransitDepthEstimate]),
	}
}

// EstimateTransit derives period, depth and duration from a light curve,
// using the same estimators as Extract.
func EstimateTransit(lc lightcurve.LightCurve) TransitParams {
	period := EstimatePeriod(lc.Time, lc.Flux)
	depth := TransitDepth(lc.Flux)
	return TransitParams{
		Period:        period,
		Depth:         depth,
		DurationHours: TransitDuration(period, depth),
	}
}
