package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/alkime/voiceprompt/internal/audio"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// Prefix is the environment variable prefix, e.g. VOICEPROMPT_API_BASE_URL.
	// Fields with an explicit envconfig tag also fall back to the bare name.
	Prefix = "voiceprompt"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderHTTP   = "http"
	ProviderDirect = "direct"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all application configuration.
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// Remote services
	Provider        string        `envconfig:"PROVIDER" default:"http"`
	APIBaseURL      string        `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"2m"`
	OpenAIAPIKey    string        `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `envconfig:"ANTHROPIC_API_KEY"`

	// Capture
	SampleRate    int           `envconfig:"SAMPLE_RATE" default:"16000"`
	Channels      int           `envconfig:"CHANNELS" default:"1"`
	ChunkInterval time.Duration `envconfig:"CHUNK_INTERVAL" default:"250ms"`
	MimeType      string        `envconfig:"MIME_TYPE" default:"audio/mpeg"`
	MaxDuration   time.Duration `envconfig:"MAX_DURATION" default:"10m"`
	MaxBytes      int64         `envconfig:"MAX_BYTES" default:"0"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogFile   string `envconfig:"LOG_FILE"`

	// Status server, disabled when empty
	StatusAddr string `envconfig:"STATUS_ADDR"`
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"strict"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// Try to load .env file (optional)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{ProviderHTTP, ProviderDirect}, c.Provider) {
		errs = append(errs, fmt.Errorf("provider must be %q or %q, got %q", ProviderHTTP, ProviderDirect, c.Provider))
	}

	if c.Provider == ProviderHTTP {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid API base URL %q", c.APIBaseURL))
		}
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if err := c.Format().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("invalid capture format: %w", err))
	}

	if c.MaxDuration < 0 || c.MaxBytes < 0 {
		errs = append(errs, errors.New("capture limits cannot be negative"))
	}

	if !slices.Contains([]string{LogFormatText, LogFormatJSON}, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log format must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat))
	}

	return errors.Join(errs...)
}

// Format is the configured capture format.
func (c *Config) Format() audio.Format {
	return audio.Format{SampleRate: c.SampleRate, Channels: c.Channels}
}

// RecorderConfig maps the capture settings onto the recorder.
func (c *Config) RecorderConfig() audio.RecorderConfig {
	return audio.RecorderConfig{
		Format:        c.Format(),
		MimeType:      c.MimeType,
		ChunkInterval: c.ChunkInterval,
		MaxDuration:   c.MaxDuration,
		MaxBytes:      c.MaxBytes,
	}
}

// BuildCSP constructs the Content Security Policy for the status server.
// It only serves JSON, so strict denies everything.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	// relaxed lets a local dashboard render generated images
	return "default-src 'self'; " +
		"img-src 'self' https: data:; " +
		"media-src 'self' data:"
}
