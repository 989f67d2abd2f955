package api

import (
	"context"
	"net/http"
	"time"

	"github.com/clipworks/clip-engine/internal/config"
	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/events"
	"github.com/clipworks/clip-engine/internal/metrics"
	"github.com/clipworks/clip-engine/internal/pipeline"
	"github.com/clipworks/clip-engine/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP API exposes.
type Deps struct {
	DB           *database.DB
	Tracker      *pipeline.Tracker
	Runner       RunControl
	Materializer ClipMaterializer
	Blobs        storage.BlobStore
	Events       *events.Publisher
	Uploader     *storage.AsyncUploader
	Version      string
	StartTime    time.Time
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(CORS)
	r.Use(Logger(log))
	r.Use(metrics.InstrumentHandler)

	// Health and metrics, no auth
	health := NewHealthHandler(deps.DB, deps.Events, deps.Blobs.Type(), deps.Version, deps.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated API
	media := NewMediaHandler(deps.DB, deps.Tracker, deps.Runner, deps.Blobs, cfg.MaxUploadMB, log)
	status := NewStatusHandler(deps.Tracker, log)
	transcripts := NewTranscriptHandler(deps.DB, log)
	clips := NewClipsHandler(deps.DB, deps.Materializer, deps.Events, deps.Uploader, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		media.Routes(r)
		status.Routes(r)
		transcripts.Routes(r)
		clips.Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
