package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"exotransit/internal/lightcurve"
	"exotransit/internal/synth"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		outDir = flag.String("out", "sample_data", "Output directory for sample files")
		seed   = flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	fmt.Println("Generating sample light curve data...")
	fmt.Printf("  Output: %s\n", *outDir)
	fmt.Printf("  Seed: %d\n", *seed)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	datasets := synth.Datasets()
	for _, d := range datasets {
		lc := d.Generate(rng)
		if err := writeFile(filepath.Join(*outDir, d.Name+".csv"), lc, synth.WriteCSV); err != nil {
			log.Fatal().Err(err).Str("dataset", d.Name).Msg("Failed to write CSV")
		}
		if err := writeFile(filepath.Join(*outDir, d.Name+".txt"), lc, synth.WriteTXT); err != nil {
			log.Fatal().Err(err).Str("dataset", d.Name).Msg("Failed to write TXT")
		}
		fmt.Printf("✓ %s: %d points (%s)\n", d.Name, lc.Len(), d.Label)
	}

	readme := filepath.Join(*outDir, "README.md")
	if err := os.WriteFile(readme, []byte(synth.README(datasets)), 0644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write README")
	}

	fmt.Printf("✓ Generated %d datasets in %s\n", len(datasets), *outDir)
}

func writeFile(path string, lc lightcurve.LightCurve, write func(io.Writer, lightcurve.LightCurve) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f, lc); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
