package ml

import "fmt"

// StandardScaler applies (x - mean) / scale per feature. A zero scale is
// treated as 1, matching scalers fitted on constant columns.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) validate(n int) error {
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("%w: scaler has %d means and %d scales, want %d", ErrInvalidModel, len(s.Mean), len(s.Scale), n)
	}
	return nil
}

// Transform returns a scaled copy of x.
func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out
}
