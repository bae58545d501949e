package features

import (
	"context"
	"math"
	"sort"
)

// moments holds population statistics over a flux series.
type moments struct {
	mean, std, min, max float64
}

func computeMoments(x []float64) moments {
	if len(x) == 0 {
		return moments{}
	}

	m := moments{min: x[0], max: x[0]}
	var sum float64
	for _, v := range x {
		sum += v
		if v < m.min {
			m.min = v
		}
		if v > m.max {
			m.max = v
		}
	}
	m.mean = sum / float64(len(x))

	var ss float64
	for _, v := range x {
		d := v - m.mean
		ss += d * d
	}
	m.std = math.Sqrt(ss / float64(len(x)))
	return m
}

// standardizedMoment returns mean(((x-mean)/std)^k), or 0 when std is 0.
func standardizedMoment(x []float64, mean, std float64, k int) float64 {
	if std == 0 || len(x) == 0 {
		return 0
	}
	var acc float64
	for _, v := range x {
		z := (v - mean) / std
		acc += math.Pow(z, float64(k))
	}
	return acc / float64(len(x))
}

// Skewness is the third standardized moment; 0 for zero-variance input.
func Skewness(x []float64) float64 {
	m := computeMoments(x)
	return standardizedMoment(x, m.mean, m.std, 3)
}

// Kurtosis is the excess kurtosis (fourth standardized moment minus 3);
// 0 for zero-variance input.
func Kurtosis(x []float64) float64 {
	m := computeMoments(x)
	if m.std == 0 {
		return 0
	}
	return standardizedMoment(x, m.mean, m.std, 4) - 3
}

// Percentile returns the p-th percentile (0..100) using linear
// interpolation between the closest ranks.
func Percentile(x []float64, p float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// autocorrelation returns the non-negative-lag half of the full
// autocorrelation of x: out[k] = sum_i x[i]*x[i+k]. The sum is quadratic in
// len(x), so ctx is checked before every lag.
func autocorrelation(ctx context.Context, x []float64) ([]float64, error) {
	n := len(x)
	out := make([]float64, n)
	for k := 0; k < n; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var acc float64
		for i := 0; i+k < n; i++ {
			acc += x[i] * x[i+k]
		}
		out[k] = acc
	}
	return out, nil
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
