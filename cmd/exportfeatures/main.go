package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"exotransit/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		dataPath   = flag.String("data", "data", "Data directory holding the bbolt store")
		outputPath = flag.String("output", "training_data.csv", "Output file path")
		format     = flag.String("format", "csv", "Output format: csv or json")
		source     = flag.String("source", "", "Only export records from this source (predict, identifier, upload, websocket)")
		days       = flag.Int("days", 0, "Export only the last N days (0 for all, requires -source)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().
		Str("data", *dataPath).
		Str("output", *outputPath).
		Str("format", *format).
		Msg("Exporting feature records")

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	if *format == "csv" && *source == "" {
		n, err := store.ExportFeaturesToCSV(*outputPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
		fmt.Printf("✓ Exported %d feature records to %s\n", n, *outputPath)
		return
	}

	records, err := loadRecords(store, *source, *days)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read feature records")
	}

	switch *format {
	case "csv":
		err = writeCSV(*outputPath, records)
	case "json":
		err = writeJSON(*outputPath, records)
	default:
		log.Fatal().Str("format", *format).Msg("Unknown output format")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("✓ Exported %d feature records to %s\n", len(records), *outputPath)
}

func loadRecords(store *storage.Store, source string, days int) ([]storage.FeatureRecord, error) {
	if source == "" {
		return store.AllFeatures()
	}
	start := time.Unix(0, 0)
	if days > 0 {
		start = time.Now().AddDate(0, 0, -days)
	}
	return store.GetFeaturesInRange(source, start, time.Now())
}

func writeCSV(path string, records []storage.FeatureRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if _, err := storage.WriteRecordsCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, records []storage.FeatureRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
