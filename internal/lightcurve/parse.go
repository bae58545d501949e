package lightcurve

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrTooFewPoints is returned by Parse when fewer than the required number
// of valid pairs were found. It matches ErrInvalidInput.
var ErrTooFewPoints = fmt.Errorf("%w: too few data points", ErrInvalidInput)

// Parse reads delimited text (CSV or whitespace separated) into a
// LightCurve. The first two fields of each line are time and flux. A leading
// header line starting with "time" or "flux" is skipped, as are comment
// lines and lines that do not parse. At least minPoints pairs must remain.
func Parse(r io.Reader, minPoints int) (LightCurve, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var time, flux []float64
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			lower := strings.ToLower(line)
			if strings.HasPrefix(lower, "time") || strings.HasPrefix(lower, "flux") {
				continue
			}
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(strings.ReplaceAll(line, ",", " "))
		if len(parts) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || !isFinite(t) {
			continue
		}
		f, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || !isFinite(f) {
			continue
		}
		time = append(time, t)
		flux = append(flux, f)
	}
	if err := scanner.Err(); err != nil {
		return LightCurve{}, fmt.Errorf("%w: read light curve: %v", ErrInvalidInput, err)
	}

	if len(flux) < minPoints {
		return LightCurve{}, fmt.Errorf("%w: need %d, found %d", ErrTooFewPoints, minPoints, len(flux))
	}
	return LightCurve{Time: time, Flux: flux}, nil
}
