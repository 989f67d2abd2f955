package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	clipengine "github.com/clipworks/clip-engine"
	"github.com/clipworks/clip-engine/internal/api"
	"github.com/clipworks/clip-engine/internal/clips"
	"github.com/clipworks/clip-engine/internal/config"
	"github.com/clipworks/clip-engine/internal/database"
	"github.com/clipworks/clip-engine/internal/events"
	"github.com/clipworks/clip-engine/internal/highlight"
	"github.com/clipworks/clip-engine/internal/media"
	"github.com/clipworks/clip-engine/internal/pipeline"
	"github.com/clipworks/clip-engine/internal/render"
	"github.com/clipworks/clip-engine/internal/storage"
	"github.com/clipworks/clip-engine/internal/transcribe"
	"github.com/clipworks/clip-engine/internal/watch"
)

var version = "dev"

func main() {
	startTime := time.Now()

	overrides := config.Overrides{}
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&overrides.DatabaseURL, "db", "", "PostgreSQL connection URL")
	flag.StringVar(&overrides.MediaDir, "media-dir", "", "media storage directory")
	flag.StringVar(&overrides.OutputDir, "output-dir", "", "rendered clip output directory")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("clip-engine starting")

	if !media.CheckFFmpeg() {
		log.Warn().Msg("ffmpeg not found in PATH, chunk extraction and clip rendering will fail")
	}
	if !media.CheckFFprobe() {
		log.Warn().Msg("ffprobe not found in PATH, duration probing will fail")
	}
	if !media.CheckYtDlp() {
		log.Warn().Msg("yt-dlp not found in PATH, URL ingest will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.InitSchema(ctx, clipengine.SchemaSQL); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Blob storage: local disk, optionally mirrored to S3
	blobs, err := storage.New(cfg.S3, cfg.MediaDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up storage")
	}

	// MQTT event publishing (nil publisher when no broker is configured)
	publisher, err := events.Connect(events.Options{
		BrokerURL: cfg.MQTTBrokerURL,
		ClientID:  cfg.MQTTClientID,
		Username:  cfg.MQTTUsername,
		Password:  cfg.MQTTPassword,
		Log:       log.With().Str("component", "events").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mqtt broker")
	}
	defer publisher.Close()

	tracker := pipeline.NewTracker(db, func(row *database.StatusRow) {
		publisher.PublishStatus(row)
	}, log.With().Str("component", "tracker").Logger())

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid speech-to-text configuration")
	}

	var scorer highlight.Scorer
	if cfg.ScorerURL != "" {
		scorer = highlight.NewHTTPScorer(cfg.ScorerURL, cfg.ScorerTimeout, log)
	}

	runner := pipeline.NewRunner(ctx, pipeline.RunnerOptions{
		Store:   db,
		Tracker: tracker,
		Probe:   media.FFprobe{},
		Fetch: &media.YtDlp{
			Dir: cfg.MediaDir,
			Log: log.With().Str("component", "download").Logger(),
		},
		Thumbs: media.FFmpegThumbnailer{},
		Engine: transcribe.EngineOptions{
			Provider:       provider,
			Store:          db,
			Extract:        media.FFmpegExtractor{},
			Window:         cfg.ChunkWindow.Seconds(),
			Overlap:        cfg.ChunkOverlap.Seconds(),
			MaxRetries:     cfg.MaxRetries,
			RetryBase:      cfg.RetryBase,
			RetryCap:       cfg.RetryCap,
			AttemptTimeout: cfg.STTTimeout,
			Language:       cfg.Language,
			AssignSpeakers: true,
			Log:            log.With().Str("component", "transcribe").Logger(),
		},
		Scorer: scorer,
		OnCandidates: func(mediaID uuid.UUID, cands []highlight.Candidate) {
			publisher.PublishCandidates(mediaID, cands)
		},
		Log: log.With().Str("component", "runner").Logger(),
	})

	materializer := clips.NewMaterializer(clips.MaterializerOptions{
		Store: db,
		Render: &render.FFmpegRenderer{
			OutputDir: cfg.OutputDir,
			Log:       log.With().Str("component", "render").Logger(),
		},
		MinSeconds: cfg.MinClipSeconds,
		MaxSeconds: cfg.MaxClipSeconds,
		Log:        log.With().Str("component", "clips").Logger(),
	})

	// Async S3 mirroring for rendered clips
	var uploader *storage.AsyncUploader
	if tiered, ok := blobs.(*storage.TieredStore); ok {
		uploader = storage.NewAsyncUploader(tiered.S3Store(), 64, log)
		uploader.Start(2)
	}

	// Drop-folder intake
	var watcher *watch.Watcher
	if cfg.InboxDir != "" {
		watcher = watch.New(ctx, cfg.InboxDir, func(ctx context.Context, path string) error {
			return intakeFile(ctx, path, blobs, db, tracker, runner)
		}, log)
		if err := watcher.Start(); err != nil {
			log.Fatal().Err(err).Str("dir", cfg.InboxDir).Msg("failed to start inbox watcher")
		}
	}

	srv := api.NewServer(cfg, api.Deps{
		DB:           db,
		Tracker:      tracker,
		Runner:       runner,
		Materializer: materializer,
		Blobs:        blobs,
		Events:       publisher,
		Uploader:     uploader,
		Version:      version,
		StartTime:    startTime,
	}, log.With().Str("component", "http").Logger())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
	if watcher != nil {
		watcher.Stop()
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("runner shutdown incomplete")
	}
	if uploader != nil {
		uploader.Stop()
	}

	log.Info().Msg("clip-engine stopped")
}

// buildProvider picks the speech-to-text backend from config.
func buildProvider(cfg *config.Config) (transcribe.Provider, error) {
	switch cfg.STTProvider {
	case "whisper":
		return transcribe.NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.STTTimeout), nil
	case "deepinfra":
		if cfg.DeepInfraKey == "" {
			return nil, fmt.Errorf("DEEPINFRA_API_KEY is required for the deepinfra provider")
		}
		return transcribe.NewDeepInfraClient(cfg.DeepInfraKey, cfg.DeepInfraModel, cfg.STTTimeout), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STTProvider)
	}
}

// intakeFile registers a file dropped into the inbox the same way an HTTP
// upload is registered, then starts a processing run. The inbox copy is left
// in place; the stored copy under the blob store is what processing reads.
func intakeFile(ctx context.Context, path string, blobs storage.BlobStore, db *database.DB, tracker *pipeline.Tracker, runner *pipeline.Runner) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read inbox file: %w", err)
	}

	original := filepath.Base(path)
	id := uuid.New()
	key := api.MediaKey(id, original)
	if err := blobs.Save(ctx, key, data, ""); err != nil {
		return fmt.Errorf("store inbox file: %w", err)
	}
	stored := blobs.LocalPath(key)
	if stored == "" {
		return fmt.Errorf("stored inbox file has no local path")
	}

	row := &database.MediaRow{
		ID:               id,
		Filename:         filepath.Base(key),
		OriginalFilename: &original,
		MediaType:        media.TypeFor(original),
		SourceType:       "upload",
		FilePath:         stored,
	}
	if err := db.InsertMedia(ctx, row); err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	if err := tracker.Reset(ctx, id); err != nil {
		return fmt.Errorf("init status: %w", err)
	}
	return runner.Start(id, stored)
}
