// Package lightcurve defines the time/flux series consumed by feature
// extraction, along with boundary validation and the delimited-text parser
// used for uploaded files.
package lightcurve

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks every user-visible validation failure: empty or
// mismatched series, non-numeric values, or files below the minimum size.
var ErrInvalidInput = errors.New("invalid input")

// LightCurve is an ordered sequence of (time, flux) pairs. Time is nominally
// increasing but need not be uniformly sampled.
type LightCurve struct {
	Time []float64 `json:"time"`
	Flux []float64 `json:"flux"`
}

// New validates the two series and returns a LightCurve over copies of them.
func New(time, flux []float64) (LightCurve, error) {
	if len(flux) == 0 {
		return LightCurve{}, fmt.Errorf("%w: flux series is empty", ErrInvalidInput)
	}
	if len(time) != len(flux) {
		return LightCurve{}, fmt.Errorf("%w: time has %d points, flux has %d", ErrInvalidInput, len(time), len(flux))
	}
	for i := range flux {
		if !isFinite(time[i]) {
			return LightCurve{}, fmt.Errorf("%w: time[%d] is not a finite number", ErrInvalidInput, i)
		}
		if !isFinite(flux[i]) {
			return LightCurve{}, fmt.Errorf("%w: flux[%d] is not a finite number", ErrInvalidInput, i)
		}
	}

	lc := LightCurve{
		Time: make([]float64, len(time)),
		Flux: make([]float64, len(flux)),
	}
	copy(lc.Time, time)
	copy(lc.Flux, flux)
	return lc, nil
}

// FromFlux builds a LightCurve whose time axis is the sample index 0..n-1.
func FromFlux(flux []float64) (LightCurve, error) {
	return New(IndexTime(len(flux)), flux)
}

// IndexTime returns 0, 1, ..., n-1 as float64.
func IndexTime(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i)
	}
	return t
}

// Len returns the number of points.
func (lc LightCurve) Len() int {
	return len(lc.Flux)
}

// Validate re-checks the invariants New enforces, for values built by hand.
func (lc LightCurve) Validate() error {
	_, err := New(lc.Time, lc.Flux)
	return err
}

// Head returns up to n leading points of each series, for previews.
func (lc LightCurve) Head(n int) (time, flux []float64) {
	if n > lc.Len() {
		n = lc.Len()
	}
	if n < 0 {
		n = 0
	}
	return lc.Time[:n:n], lc.Flux[:n:n]
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
