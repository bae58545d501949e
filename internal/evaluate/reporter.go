package evaluate

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Reporter writes evaluation reports
type Reporter struct {
	results    *Results
	outputPath string
}

// NewReporter creates a new reporter
func NewReporter(results *Results, outputPath string) *Reporter {
	return &Reporter{
		results:    results,
		outputPath: outputPath,
	}
}

// GenerateReport writes the summary, outcome log and JSON report
func (r *Reporter) GenerateReport() error {
	if err := os.MkdirAll(r.outputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.generateSummary(); err != nil {
		return err
	}

	if err := r.generateOutcomeLog(); err != nil {
		return err
	}

	return r.generateJSONReport()
}

func (r *Reporter) generateSummary() error {
	summaryPath := filepath.Join(r.outputPath, "evaluation_summary.txt")
	file, err := os.Create(summaryPath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	r.PrintSummary(file)

	log.Info().Str("file", summaryPath).Msg("Summary report generated")
	return nil
}

func (r *Reporter) generateOutcomeLog() error {
	csvPath := filepath.Join(r.outputPath, "outcomes.csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create outcome log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"Name", "Expected", "Predicted", "Confidence", "Period", "Depth", "Correct"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range r.results.Outcomes {
		record := []string{
			o.Name,
			o.Expected,
			o.Predicted,
			fmt.Sprintf("%.4f", o.Confidence),
			fmt.Sprintf("%.4f", o.Period),
			fmt.Sprintf("%.6f", o.Depth),
			strconv.FormatBool(o.Correct),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write outcome log: %w", err)
	}

	log.Info().Str("file", csvPath).Msg("Outcome log generated")
	return nil
}

func (r *Reporter) generateJSONReport() error {
	jsonPath := filepath.Join(r.outputPath, "evaluation_results.json")

	data, err := json.MarshalIndent(r.results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(jsonPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}

	log.Info().Str("file", jsonPath).Msg("JSON report generated")
	return nil
}

// PrintSummary writes a human-readable summary with the confusion matrix
func (r *Reporter) PrintSummary(w io.Writer) {
	res := r.results

	fmt.Fprintf(w, "EVALUATION RESULTS\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Model: %s (%s, version %s)\n", res.Model.ModelType, res.Model.Source, res.Model.Version)
	fmt.Fprintf(w, "Samples: %d\n", res.Total)
	fmt.Fprintf(w, "Correct: %d\n", res.Correct)
	fmt.Fprintf(w, "Accuracy: %.2f%%\n\n", res.Accuracy*100)

	fmt.Fprintf(w, "CONFUSION MATRIX (rows: expected, columns: predicted)\n")
	fmt.Fprintf(w, "-----------------------------------------------------\n")
	fmt.Fprintf(w, "%-16s", "")
	for _, c := range res.Classes {
		fmt.Fprintf(w, "%16s", c)
	}
	fmt.Fprintln(w)
	for _, expected := range res.Classes {
		fmt.Fprintf(w, "%-16s", expected)
		for _, predicted := range res.Classes {
			fmt.Fprintf(w, "%16d", res.Confusion[expected][predicted])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nPER-CLASS METRICS\n")
	fmt.Fprintf(w, "-----------------\n")
	for _, c := range res.Classes {
		s := res.PerClass[c]
		fmt.Fprintf(w, "%s: support %d, precision %.2f%%, recall %.2f%%\n",
			c, s.Support, s.Precision*100, s.Recall*100)
	}
}
