package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-anonymizer/internal/anonymize"
	"github.com/ironsheep/photo-anonymizer/internal/config"
	"github.com/ironsheep/photo-anonymizer/internal/detection"
	"github.com/ironsheep/photo-anonymizer/internal/model"
)

// Service identity reported by /info and /health.
const (
	ServiceName    = "HTW Emerging Photo"
	ServiceVersion = "1.0.0"
)

// APIPrefix is the versioned route prefix.
const APIPrefix = "/api/v1"

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Deps are the collaborators of a Server.
type Deps struct {
	// Faces runs the face model. Required when faces are enabled.
	Faces model.RawDetector

	// Plates runs the plate model. Required when plates are enabled.
	Plates model.RawDetector

	// Verifier optionally confirms heuristic plate candidates.
	Verifier detection.PlateVerifier
}

// Server serves the anonymization API.
type Server struct {
	cfg        *config.Config
	faces      model.RawDetector
	plates     model.RawDetector
	cascade    *detection.Orchestrator
	anonymizer *anonymize.Anonymizer
	router     *mux.Router
}

// New creates a server for cfg.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg.EnableFaces && deps.Faces == nil {
		return nil, errors.New("face detection enabled without a face detector")
	}
	if cfg.EnablePlates && deps.Plates == nil {
		return nil, errors.New("plate detection enabled without a plate detector")
	}

	anon, err := anonymize.New(cfg.Color)
	if err != nil {
		return nil, fmt.Errorf("invalid anonymization color: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		faces:      deps.Faces,
		plates:     deps.Plates,
		anonymizer: anon,
		cascade: detection.NewOrchestrator(detection.Options{
			Threshold:          cfg.PlateThreshold,
			WholeImageFallback: cfg.WholeImageFallback,
			VehicleParallelism: cfg.VehicleParallelism,
			Verifier:           deps.Verifier,
		}),
	}
	s.router = s.routes()
	return s, nil
}

// routes registers every endpoint at the root and under APIPrefix.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID, logRequests)

	register := func(r *mux.Router) {
		r.HandleFunc("/anonymize", s.handleAnonymize).Methods(http.MethodPost)
		r.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
		r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
		r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	}
	register(r.PathPrefix(APIPrefix).Subrouter())
	register(r)
	return r
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return cors(s.router)
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
