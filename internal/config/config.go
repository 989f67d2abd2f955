package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`

	MediaDir  string `env:"MEDIA_DIR" envDefault:"./media"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./output"`
	InboxDir  string `env:"INBOX_DIR"` // empty disables the drop-folder watcher

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Uploads stream large media bodies and materialization renders inside
	// the request, so both HTTP directions get generous ceilings.
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15m"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15m"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	MaxUploadMB  int64         `env:"MAX_UPLOAD_MB" envDefault:"2048"`

	// Speech-to-text backend. Provider is "whisper" (OpenAI-compatible
	// endpoint) or "deepinfra".
	STTProvider    string        `env:"STT_PROVIDER" envDefault:"whisper"`
	WhisperURL     string        `env:"WHISPER_URL" envDefault:"http://localhost:8000/v1/audio/transcriptions"`
	WhisperModel   string        `env:"WHISPER_MODEL" envDefault:"Systran/faster-whisper-large-v3"`
	DeepInfraKey   string        `env:"DEEPINFRA_API_KEY"`
	DeepInfraModel string        `env:"DEEPINFRA_MODEL" envDefault:"openai/whisper-large-v3-turbo"`
	STTTimeout     time.Duration `env:"STT_TIMEOUT" envDefault:"5m"`
	Language       string        `env:"STT_LANGUAGE"`

	// Chunked transcription. Media longer than ChunkWindow is split into
	// ChunkWindow-sized pieces with ChunkOverlap widening each trailing edge.
	ChunkWindow  time.Duration `env:"CHUNK_WINDOW" envDefault:"10m"`
	ChunkOverlap time.Duration `env:"CHUNK_OVERLAP" envDefault:"3s"`
	MaxRetries   int           `env:"CHUNK_MAX_RETRIES" envDefault:"3"`
	RetryBase    time.Duration `env:"CHUNK_RETRY_BASE" envDefault:"2s"`
	RetryCap     time.Duration `env:"CHUNK_RETRY_CAP" envDefault:"60s"`

	// Highlight scorer endpoint. Empty disables the analyzing stage.
	ScorerURL     string        `env:"SCORER_URL"`
	ScorerTimeout time.Duration `env:"SCORER_TIMEOUT" envDefault:"2m"`

	// Clip duration bounds enforced before materialization.
	MinClipSeconds float64 `env:"MIN_CLIP_SECONDS" envDefault:"5"`
	MaxClipSeconds float64 `env:"MAX_CLIP_SECONDS" envDefault:"600"`

	MQTTBrokerURL string `env:"MQTT_BROKER_URL"` // empty disables event publishing
	MQTTClientID  string `env:"MQTT_CLIENT_ID" envDefault:"clip-engine"`
	MQTTUsername  string `env:"MQTT_USERNAME"`
	MQTTPassword  string `env:"MQTT_PASSWORD"`

	S3 S3Config

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// S3Config configures the optional S3-compatible object store for source
// media and rendered clips.
type S3Config struct {
	Bucket        string        `env:"S3_BUCKET"`
	Region        string        `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint      string        `env:"S3_ENDPOINT"`
	AccessKey     string        `env:"S3_ACCESS_KEY"`
	SecretKey     string        `env:"S3_SECRET_KEY"`
	Prefix        string        `env:"S3_PREFIX"`
	PresignExpiry time.Duration `env:"S3_PRESIGN_EXPIRY" envDefault:"1h"`
}

// Enabled reports whether S3 storage is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile     string
	HTTPAddr    string
	LogLevel    string
	DatabaseURL string
	MediaDir    string
	OutputDir   string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.DatabaseURL != "" {
		cfg.DatabaseURL = overrides.DatabaseURL
	}
	if overrides.MediaDir != "" {
		cfg.MediaDir = overrides.MediaDir
	}
	if overrides.OutputDir != "" {
		cfg.OutputDir = overrides.OutputDir
	}

	return cfg, nil
}
