package synth

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"exotransit/internal/common"
	"exotransit/internal/lightcurve"
)

// Dataset is a named sample curve with the label it is expected to receive.
type Dataset struct {
	Name        string
	Description string
	Label       string
	Generate    func(rng *rand.Rand) lightcurve.LightCurve
}

// Datasets returns the sample catalogue written by the gensamples command.
func Datasets() []Dataset {
	planet := func(duration, period, depth, hours float64) func(*rand.Rand) lightcurve.LightCurve {
		return func(rng *rand.Rand) lightcurve.LightCurve {
			opts := DefaultPlanetOptions()
			opts.DurationDays = duration
			opts.PeriodDays = period
			opts.TransitDepth = depth
			opts.TransitDurationHours = hours
			return Planet(rng, opts)
		}
	}

	return []Dataset{
		{
			Name:        "confirmed_planet_kepler186f",
			Description: "Confirmed exoplanet with clear transit signal",
			Label:       common.LabelPlanet,
			Generate:    planet(40, 3.2, 0.008, 4),
		},
		{
			Name:        "hot_jupiter_hd209458b",
			Description: "Hot Jupiter with deep transit",
			Label:       common.LabelPlanet,
			Generate:    planet(25, 3.5, 0.015, 3),
		},
		{
			Name:        "planet_candidate_toi1234",
			Description: "Planet candidate with weak signal",
			Label:       common.LabelCandidate,
			Generate:    func(rng *rand.Rand) lightcurve.LightCurve { return Candidate(rng, 35) },
		},
		{
			Name:        "eclipsing_binary_kic8462852",
			Description: "Eclipsing binary system (false positive)",
			Label:       common.LabelFalsePositive,
			Generate:    func(rng *rand.Rand) lightcurve.LightCurve { return FalsePositive(rng, 30) },
		},
		{
			Name:        "stellar_variability_only",
			Description: "Star with variability but no transits",
			Label:       common.LabelFalsePositive,
			Generate:    func(rng *rand.Rand) lightcurve.LightCurve { return Noisy(rng, 45) },
		},
		{
			Name:        "super_earth_k2138b",
			Description: "Super-Earth with shallow transit",
			Label:       common.LabelPlanet,
			Generate:    planet(50, 7.2, 0.004, 5.5),
		},
	}
}

// WriteCSV writes a "time,flux" header followed by one row per point.
func WriteCSV(w io.Writer, lc lightcurve.LightCurve) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("time,flux\n")
	for i := range lc.Flux {
		bw.WriteString(strconv.FormatFloat(lc.Time[i], 'g', -1, 64))
		bw.WriteByte(',')
		bw.WriteString(strconv.FormatFloat(lc.Flux[i], 'g', -1, 64))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteTXT writes a commented header followed by space-separated columns.
func WriteTXT(w io.Writer, lc lightcurve.LightCurve) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("# Time (days)  Flux (normalized)\n")
	for i := range lc.Flux {
		fmt.Fprintf(bw, "%.6f  %.8f\n", lc.Time[i], lc.Flux[i])
	}
	return bw.Flush()
}

// README renders the description file written next to the samples.
func README(datasets []Dataset) string {
	var b strings.Builder
	b.WriteString("# Sample Light Curve Data\n\n")
	b.WriteString("Sample light curve files for testing the exoplanet detection service.\n\n")
	b.WriteString("## File Formats\n\n")
	b.WriteString("- **CSV files**: comma-separated values with a `time,flux` header\n")
	b.WriteString("- **TXT files**: space-separated values with a comment header\n\n")
	b.WriteString("## Datasets\n\n")
	for _, d := range datasets {
		fmt.Fprintf(&b, "### %s\n", d.Name)
		fmt.Fprintf(&b, "- **Description**: %s\n", d.Description)
		fmt.Fprintf(&b, "- **Expected label**: %s\n", d.Label)
		fmt.Fprintf(&b, "- **Files**: `%s.csv`, `%s.txt`\n\n", d.Name, d.Name)
	}
	b.WriteString("## Data Characteristics\n\n")
	b.WriteString("- **Time**: days since start of observation\n")
	b.WriteString("- **Flux**: normalized stellar brightness (1.0 = baseline)\n")
	b.WriteString("- **Cadence**: 30 minutes\n")
	b.WriteString("- **Duration**: 25-50 days per dataset\n\n")
	b.WriteString("Upload any file to `POST /api/analyze/file`.\n")
	return b.String()
}
