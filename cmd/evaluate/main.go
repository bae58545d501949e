package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"exotransit/internal/evaluate"
	"exotransit/internal/metrics"
	"exotransit/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		modelPath  = flag.String("model", "", "Path to model artifact (empty uses the bundled default)")
		outputPath = flag.String("output", "", "Output directory for reports (empty prints only)")
		perKind    = flag.Int("n", 25, "Random curves per generator")
		seed       = flag.Int64("seed", 42, "Random seed")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	fmt.Println("=== Evaluation Configuration ===")
	fmt.Printf("Model Path: %s\n", *modelPath)
	fmt.Printf("Output Directory: %s\n", *outputPath)
	fmt.Printf("Curves Per Generator: %d\n", *perKind)
	fmt.Printf("Seed: %d\n", *seed)
	fmt.Println("================================")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Private registry: counters are only used for the closing log line
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	model, _ := ml.LoadOrDefault(*modelPath)
	predictor := ml.NewPredictor(model, metrics.NewWrapper(m))

	samples := evaluate.Samples(rand.New(rand.NewSource(*seed)), *perKind)
	results, err := evaluate.Run(ctx, predictor, samples)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}

	reporter := evaluate.NewReporter(results, *outputPath)
	if *outputPath != "" {
		if err := reporter.GenerateReport(); err != nil {
			log.Error().Err(err).Msg("Failed to generate reports")
		}
	}

	fmt.Println()
	reporter.PrintSummary(os.Stdout)

	log.Info().
		Float64("error_rate", m.GetErrorRate(reg)).
		Str("output", *outputPath).
		Msg("Evaluation completed successfully")
}
