// Package synth generates synthetic light curves: transiting planets, weak
// candidates, eclipsing binaries and pure stellar variability. The
// generators back the sample-data command, the archive fallback and model
// evaluation. Every generator draws from the *rand.Rand it is given, so a
// fixed seed reproduces the same curve.
package synth

import (
	"math"
	"math/rand"

	"exotransit/internal/lightcurve"
)

const (
	defaultCadenceHours = 0.5

	// archive-style curves: 1500 samples over 30 days
	archiveSpanDays = 30.0
	archivePoints   = 1500
	archiveNoise    = 0.001
)

// PlanetOptions parameterise a transiting-planet curve.
type PlanetOptions struct {
	DurationDays         float64
	CadenceHours         float64
	PeriodDays           float64
	TransitDepth         float64
	TransitDurationHours float64
	NoiseLevel           float64
}

// DefaultPlanetOptions is a 30 day, 3.2 day period, 1% deep transit.
func DefaultPlanetOptions() PlanetOptions {
	return PlanetOptions{
		DurationDays:         30,
		CadenceHours:         defaultCadenceHours,
		PeriodDays:           3.2,
		TransitDepth:         0.01,
		TransitDurationHours: 4,
		NoiseLevel:           0.0005,
	}
}

// timeAxis returns 0, step, 2*step, ... strictly below span.
func timeAxis(spanDays, cadenceHours float64) []float64 {
	step := cadenceHours / 24
	n := int(math.Ceil(spanDays/step - 1e-9))
	if n < 0 {
		n = 0
	}
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * step
	}
	return t
}

// linspace returns n evenly spaced points over [start, stop].
func linspace(start, stop float64, n int) []float64 {
	t := make([]float64, n)
	if n == 1 {
		t[0] = start
		return t
	}
	step := (stop - start) / float64(n-1)
	for i := range t {
		t[i] = start + float64(i)*step
	}
	return t
}

func noisyBaseline(rng *rand.Rand, n int, sigma float64) []float64 {
	flux := make([]float64, n)
	for i := range flux {
		flux[i] = 1 + rng.NormFloat64()*sigma
	}
	return flux
}

func phaseOf(t, period float64) float64 {
	return math.Mod(t, period) / period
}

func build(time, flux []float64) lightcurve.LightCurve {
	return lightcurve.LightCurve{Time: time, Flux: flux}
}

// Planet generates a curve with a periodic transit centred at phase 0.5.
func Planet(rng *rand.Rand, opts PlanetOptions) lightcurve.LightCurve {
	if opts.CadenceHours <= 0 {
		opts.CadenceHours = defaultCadenceHours
	}
	time := timeAxis(opts.DurationDays, opts.CadenceHours)
	flux := noisyBaseline(rng, len(time), opts.NoiseLevel)
	if opts.PeriodDays <= 0 {
		return build(time, flux)
	}

	halfWidth := opts.TransitDurationHours / 24 / opts.PeriodDays / 2
	for i, t := range time {
		offset := math.Abs(phaseOf(t, opts.PeriodDays) - 0.5)
		if offset < halfWidth {
			x := offset / halfWidth
			flux[i] -= opts.TransitDepth * (1 - math.Sqrt(1-x*x))
		}
	}
	return build(time, flux)
}

// Candidate generates a noisier curve with a weak, irregular 5.7 day dip.
func Candidate(rng *rand.Rand, durationDays float64) lightcurve.LightCurve {
	const (
		period = 5.7
		depth  = 0.003
	)
	time := timeAxis(durationDays, defaultCadenceHours)
	flux := noisyBaseline(rng, len(time), 0.001)

	for i, t := range time {
		phase := phaseOf(t, period)
		if phase > 0.48 && phase < 0.52 {
			flux[i] -= depth * (1 + rng.NormFloat64()*0.3)
		}
	}
	return build(time, flux)
}

// FalsePositive generates an eclipsing binary: a deep V-shaped primary
// eclipse at phase 0.5 and a shallow secondary at phase 0.
func FalsePositive(rng *rand.Rand, durationDays float64) lightcurve.LightCurve {
	const (
		period         = 2.1
		primaryDepth   = 0.02
		secondaryDepth = 0.005
		halfWidth      = 0.03
	)
	time := timeAxis(durationDays, defaultCadenceHours)
	flux := noisyBaseline(rng, len(time), 0.0008)

	for i, t := range time {
		phase := phaseOf(t, period)
		switch {
		case phase > 0.5-halfWidth && phase < 0.5+halfWidth:
			flux[i] -= primaryDepth * math.Abs(phase-0.5) / halfWidth
		case phase < halfWidth || math.Abs(phase-1) < halfWidth:
			flux[i] -= secondaryDepth * math.Min(phase, math.Abs(phase-1)) / halfWidth
		}
	}
	return build(time, flux)
}

// Noisy generates white noise on top of 15 day stellar variability and a
// slow instrumental drift, with no transit.
func Noisy(rng *rand.Rand, durationDays float64) lightcurve.LightCurve {
	const (
		variabilityPeriod    = 15.0
		variabilityAmplitude = 0.002
		driftAmplitude       = 0.0001
	)
	time := timeAxis(durationDays, defaultCadenceHours)
	flux := noisyBaseline(rng, len(time), 0.001)

	for i, t := range time {
		flux[i] += variabilityAmplitude * math.Sin(2*math.Pi*t/variabilityPeriod)
		if durationDays > 0 {
			flux[i] += driftAmplitude * t / durationDays
		}
	}
	return build(time, flux)
}

// addGaussianDips subtracts a Gaussian dip at every multiple of period
// within the span, limited to |t - centre| < halfWindow.
func addGaussianDips(time, flux []float64, period, depth, halfWindow, width float64) {
	for centre := 0.0; centre < archiveSpanDays; centre += period {
		for i, t := range time {
			d := t - centre
			if math.Abs(d) < halfWindow {
				flux[i] -= depth * math.Exp(-(d/width)*(d/width))
			}
		}
	}
}

// Basic generates a 30 day archive-style curve that carries a random
// transit half of the time.
func Basic(rng *rand.Rand) lightcurve.LightCurve {
	time := linspace(0, archiveSpanDays, archivePoints)
	flux := noisyBaseline(rng, len(time), archiveNoise)

	if rng.Float64() > 0.5 {
		period := 5 + rng.Float64()*15
		depth := 0.005 + rng.Float64()*0.015
		addGaussianDips(time, flux, period, depth, 0.1, 0.04)
	}
	return build(time, flux)
}

// FromStar generates a 30 day archive-style curve for a catalogued star.
// Transiting stars with a positive period get 0.1 day dips of 0.5-2% depth.
func FromStar(rng *rand.Rand, periodDays float64, transiting bool) lightcurve.LightCurve {
	const transitDays = 0.1

	time := linspace(0, archiveSpanDays, archivePoints)
	flux := noisyBaseline(rng, len(time), archiveNoise)

	if transiting && periodDays > 0 {
		depth := 0.01 * (0.5 + rng.Float64()*1.5)
		addGaussianDips(time, flux, periodDays, depth, transitDays/2, transitDays/4)
	}
	return build(time, flux)
}
