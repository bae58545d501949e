// Package evaluate scores a predictor against synthetic light curves whose
// class is known in advance.
package evaluate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"exotransit/internal/common"
	"exotransit/internal/lightcurve"
	"exotransit/internal/ml"
	"exotransit/internal/synth"

	"github.com/rs/zerolog/log"
)

// Sample is a labelled light curve.
type Sample struct {
	Name  string
	Label string
	Curve lightcurve.LightCurve
}

// Outcome records one prediction against its expected label.
type Outcome struct {
	Name       string  `json:"name"`
	Expected   string  `json:"expected"`
	Predicted  string  `json:"predicted"`
	Confidence float64 `json:"confidence"`
	Period     float64 `json:"transit_period"`
	Depth      float64 `json:"transit_depth"`
	Correct    bool    `json:"correct"`
}

// ClassStats holds per-class precision and recall.
type ClassStats struct {
	Support   int     `json:"support"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Results summarises an evaluation run. Confusion is indexed as
// Confusion[expected][predicted].
type Results struct {
	StartTime time.Time                 `json:"start_time"`
	EndTime   time.Time                 `json:"end_time"`
	Model     ml.ModelInfo              `json:"model"`
	Classes   []string                  `json:"classes"`
	Total     int                       `json:"total"`
	Correct   int                       `json:"correct"`
	Accuracy  float64                   `json:"accuracy"`
	Confusion map[string]map[string]int `json:"confusion"`
	PerClass  map[string]ClassStats     `json:"per_class"`
	Outcomes  []Outcome                 `json:"outcomes"`
}

// Samples builds the catalogue datasets plus perKind random curves from
// each generator.
func Samples(rng *rand.Rand, perKind int) []Sample {
	var out []Sample
	for _, d := range synth.Datasets() {
		out = append(out, Sample{Name: d.Name, Label: d.Label, Curve: d.Generate(rng)})
	}

	for i := 0; i < perKind; i++ {
		opts := synth.DefaultPlanetOptions()
		opts.PeriodDays = 2 + rng.Float64()*8
		opts.TransitDepth = 0.005 + rng.Float64()*0.015
		opts.TransitDurationHours = 2 + rng.Float64()*4
		out = append(out,
			Sample{Name: fmt.Sprintf("planet_%03d", i), Label: common.LabelPlanet, Curve: synth.Planet(rng, opts)},
			Sample{Name: fmt.Sprintf("candidate_%03d", i), Label: common.LabelCandidate, Curve: synth.Candidate(rng, 30)},
			Sample{Name: fmt.Sprintf("binary_%03d", i), Label: common.LabelFalsePositive, Curve: synth.FalsePositive(rng, 30)},
			Sample{Name: fmt.Sprintf("variability_%03d", i), Label: common.LabelFalsePositive, Curve: synth.Noisy(rng, 30)},
		)
	}
	return out
}

// Run predicts every sample and tallies the results. It stops early only
// when ctx is done; a failed prediction is counted as incorrect.
func Run(ctx context.Context, predictor ml.PredictorInterface, samples []Sample) (*Results, error) {
	info := predictor.Info()
	res := &Results{
		StartTime: time.Now(),
		Model:     info,
		Classes:   info.Classes,
		Confusion: make(map[string]map[string]int),
		Outcomes:  make([]Outcome, 0, len(samples)),
	}
	for _, c := range res.Classes {
		res.Confusion[c] = make(map[string]int)
	}

	for _, s := range samples {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation interrupted after %d samples: %w", res.Total, err)
		}

		out := Outcome{Name: s.Name, Expected: s.Label}
		pred, err := predictor.Predict(ctx, s.Curve)
		if err != nil {
			log.Warn().Err(err).Str("sample", s.Name).Msg("prediction failed")
			out.Predicted = "ERROR"
		} else {
			out.Predicted = pred.Prediction
			out.Confidence = pred.Confidence
			out.Period = pred.TransitPeriod
			out.Depth = pred.TransitDepth
		}
		out.Correct = out.Predicted == out.Expected

		if res.Confusion[s.Label] == nil {
			res.Confusion[s.Label] = make(map[string]int)
		}
		res.Confusion[s.Label][out.Predicted]++
		res.Total++
		if out.Correct {
			res.Correct++
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	res.EndTime = time.Now()
	if res.Total > 0 {
		res.Accuracy = float64(res.Correct) / float64(res.Total)
	}
	res.PerClass = res.classStats()

	log.Info().
		Int("samples", res.Total).
		Int("correct", res.Correct).
		Float64("accuracy", res.Accuracy).
		Dur("elapsed", res.EndTime.Sub(res.StartTime)).
		Msg("Evaluation complete")
	return res, nil
}

func (r *Results) classStats() map[string]ClassStats {
	stats := make(map[string]ClassStats, len(r.Classes))
	for _, c := range r.Classes {
		var support, predicted int
		for _, n := range r.Confusion[c] {
			support += n
		}
		for _, row := range r.Confusion {
			predicted += row[c]
		}
		hit := r.Confusion[c][c]

		var s ClassStats
		s.Support = support
		if predicted > 0 {
			s.Precision = float64(hit) / float64(predicted)
		}
		if support > 0 {
			s.Recall = float64(hit) / float64(support)
		}
		stats[c] = s
	}
	return stats
}
