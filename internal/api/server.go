// Package api serves the classification service over HTTP: JSON
// prediction, model info, archive-backed star analysis, file upload
// analysis and a websocket prediction stream.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"exotransit/internal/archive"
	"exotransit/internal/common"
	"exotransit/internal/ml"
	"exotransit/internal/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// StarFetcher resolves a star identifier to a light curve.
type StarFetcher interface {
	FetchStar(ctx context.Context, starID string) (archive.StarData, error)
}

// FeatureSink records extracted features for later training exports.
type FeatureSink interface {
	StoreFeatures(record storage.FeatureRecord) error
}

// HTTPMetrics receives one observation per served request.
type HTTPMetrics interface {
	ObserveHTTP(route string, code int, elapsed time.Duration)
}

// Options configure the server. Zero values select the defaults in common.
type Options struct {
	Port           int
	MaxUploadBytes int64
	PreviewPoints  int
	RequestTimeout time.Duration
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
}

// Server is the HTTP front end. Stars, sink and metrics are optional.
type Server struct {
	predictor ml.PredictorInterface
	stars     StarFetcher
	sink      FeatureSink
	metrics   HTTPMetrics
	opts      Options
	upgrader  websocket.Upgrader
	router    *mux.Router
	server    *http.Server
}

// NewServer wires routes and builds the underlying http.Server.
func NewServer(predictor ml.PredictorInterface, stars StarFetcher, sink FeatureSink, metrics HTTPMetrics, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = common.DefaultPort
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = common.DefaultMaxUploadBytes
	}
	if opts.PreviewPoints < 0 {
		opts.PreviewPoints = common.DefaultPreviewPoints
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	s := &Server{
		predictor: predictor,
		stars:     stars,
		sink:      sink,
		metrics:   metrics,
		opts:      opts,
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	r.HandleFunc("/model/info", s.handleModelInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze/identifier", s.handleAnalyzeIdentifier).Methods(http.MethodPost)
	r.HandleFunc("/api/analyze/file", s.handleAnalyzeFile).Methods(http.MethodPost)
	r.HandleFunc("/ws/predict", s.handleWebSocket).Methods(http.MethodGet)
	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler).Methods(http.MethodGet)
	}
	// unmatched requests bypass router middleware, so wrap them explicitly
	r.NotFoundHandler = s.requestID(s.accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, common.ErrMsgEndpointNotFound)
	})))
	r.MethodNotAllowedHandler = s.requestID(s.accessLog(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, common.ErrMsgMethodNotAllowed)
	})))
	s.router = r

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       opts.RequestTimeout,
		WriteTimeout:      opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Stop is called.
func (s *Server) Start() {
	go func() {
		log.Info().
			Str("address", s.server.Addr).
			Msg("Starting API server")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("API server failed")
		}
	}()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server")
		return err
	}
	log.Info().Msg("API server stopped")
	return nil
}
