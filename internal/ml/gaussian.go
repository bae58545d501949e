package ml

import (
	"fmt"
	"math"
)

// varSmoothing is added to every variance relative to the largest one, so a
// near-zero variance cannot produce an infinite likelihood.
const varSmoothing = 1e-9

// GaussianNB is a Gaussian naive Bayes classifier: per-class priors and
// per-class, per-feature means and variances.
type GaussianNB struct {
	Priors    []float64   `json:"priors"`
	Means     [][]float64 `json:"means"`
	Variances [][]float64 `json:"variances"`

	logPriors []float64
	variances [][]float64
	features  int
}

func (g *GaussianNB) init(nFeatures, nClasses int) error {
	if len(g.Priors) != nClasses || len(g.Means) != nClasses || len(g.Variances) != nClasses {
		return fmt.Errorf("%w: gaussian_nb needs %d priors, means and variances", ErrInvalidModel, nClasses)
	}

	var maxVar, priorSum float64
	for c := 0; c < nClasses; c++ {
		if g.Priors[c] <= 0 {
			return fmt.Errorf("%w: prior %d must be positive", ErrInvalidModel, c)
		}
		priorSum += g.Priors[c]
		if len(g.Means[c]) != nFeatures || len(g.Variances[c]) != nFeatures {
			return fmt.Errorf("%w: class %d must have %d means and variances", ErrInvalidModel, c, nFeatures)
		}
		for _, v := range g.Variances[c] {
			if v < 0 {
				return fmt.Errorf("%w: class %d has a negative variance", ErrInvalidModel, c)
			}
			maxVar = math.Max(maxVar, v)
		}
	}

	epsilon := varSmoothing * maxVar
	if epsilon == 0 {
		epsilon = varSmoothing
	}
	g.logPriors = make([]float64, nClasses)
	g.variances = make([][]float64, nClasses)
	for c := 0; c < nClasses; c++ {
		g.logPriors[c] = math.Log(g.Priors[c] / priorSum)
		g.variances[c] = make([]float64, nFeatures)
		for j, v := range g.Variances[c] {
			g.variances[c][j] = v + epsilon
		}
	}
	g.features = nFeatures
	return nil
}

// PredictProba returns the class posteriors, computed in log space.
func (g *GaussianNB) PredictProba(x []float64) ([]float64, error) {
	if len(x) != g.features {
		return nil, fmt.Errorf("expected %d features, got %d", g.features, len(x))
	}

	nClasses := len(g.logPriors)
	joint := make([]float64, nClasses)
	best := math.Inf(-1)
	for c := 0; c < nClasses; c++ {
		ll := g.logPriors[c]
		for j, xv := range x {
			v := g.variances[c][j]
			d := xv - g.Means[c][j]
			ll += -0.5*math.Log(2*math.Pi*v) - d*d/(2*v)
		}
		joint[c] = ll
		if ll > best {
			best = ll
		}
	}

	proba := make([]float64, nClasses)
	if math.IsInf(best, 0) || math.IsNaN(best) {
		// every likelihood underflowed; fall back to the priors
		for c := range proba {
			proba[c] = math.Exp(g.logPriors[c])
		}
		return proba, nil
	}

	var sum float64
	for c, ll := range joint {
		proba[c] = math.Exp(ll - best)
		sum += proba[c]
	}
	for c := range proba {
		proba[c] /= sum
	}
	return proba, nil
}

func (g *GaussianNB) NumFeatures() int { return g.features }
func (g *GaussianNB) NumClasses() int  { return len(g.logPriors) }
