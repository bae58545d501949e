package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exotransit/internal/api"
	"exotransit/internal/archive"
	"exotransit/internal/cfg"
	"exotransit/internal/metrics"
	"exotransit/internal/ml"
	"exotransit/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logFile := cfg.SetupLogging(c)
	defer logFile.Close()

	log.Info().
		Int("port", c.Port).
		Str("model_path", c.ModelPath).
		Str("data_path", c.DataPath).
		Str("archive_url", c.ArchiveURL).
		Msg("Starting exoplanet classification service")

	// Initialize components
	m := metrics.New()
	mw := metrics.NewWrapper(m)

	model, fromFile := ml.LoadOrDefault(c.ModelPath)
	log.Info().
		Bool("from_file", fromFile).
		Str("model_type", model.Info().ModelType).
		Msg("model ready")
	predictor := ml.NewPredictor(model, mw)

	store := initializeStorage(c)
	var starCache archive.Cache
	var sink api.FeatureSink
	if store != nil {
		defer store.Close()
		starCache = store
		sink = store
	}

	stars, err := archive.NewClient(archive.Config{
		BaseURL:   c.ArchiveURL,
		Timeout:   c.ArchiveTimeout,
		CacheTTL:  c.CacheTTL,
		CacheSize: c.CacheSize,
	}, starCache, mw)
	if err != nil {
		log.Fatal().Err(err).Msg("archive client init failed")
	}

	server := api.NewServer(predictor, stars, sink, mw, api.Options{
		Port:           c.Port,
		MaxUploadBytes: c.MaxUploadBytes,
		PreviewPoints:  c.PreviewPoints,
		RequestTimeout: c.RequestTimeout,
		MetricsHandler: promhttp.Handler(),
	})
	server.Start()

	waitForShutdown(server)
}

// initializeStorage opens the bbolt store if DATA_PATH is configured and
// drops archive cache entries that have already expired.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		log.Info().Msg("no data path configured, running without persistence")
		return nil
	}

	if err := os.MkdirAll(c.DataPath, 0o755); err != nil {
		log.Warn().Err(err).Msg("failed to create data directory, continuing without persistence")
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}

	if c.CacheTTL > 0 {
		pruned, err := store.PruneStars(time.Now().Add(-c.CacheTTL))
		if err != nil {
			log.Warn().Err(err).Msg("failed to prune expired star cache entries")
		} else if pruned > 0 {
			log.Info().Int("pruned", pruned).Msg("pruned expired star cache entries")
		}
	}
	return store
}

// waitForShutdown blocks until SIGINT or SIGTERM and then drains the server
func waitForShutdown(server *api.Server) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	log.Info().Str("signal", received.String()).Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
